package domain

import (
	"time"

	"github.com/google/uuid"
)

// Answer is one resolved (context, pair) outcome decoded from a batch
// output line. Answers are created exclusively by result ingestion and
// never updated afterwards.
type Answer struct {
	ID string `json:"id" bson:"_id,omitempty"`

	// QuestionUUID is the owning question; answers are foreign-keyed to
	// the question for query convenience even though a run logically owns
	// them.
	QuestionUUID uuid.UUID `json:"questionUuid" bson:"questionUuid"`

	// RunID groups every answer produced by one submission.
	RunID uuid.UUID `json:"runId" bson:"runId"`

	// Seq is a monotonically increasing sequence number within the run,
	// assigned at creation. Elo processing orders by it; without a
	// persisted key the path-dependent ratings would not be reproducible
	// across storage backends.
	Seq int64 `json:"seq" bson:"seq"`

	// Context is the assignment the comparison was asked under.
	Context Assignment `json:"context" bson:"context"`

	// Choices is the pair the model chose between.
	Choices Pair `json:"choices" bson:"choices"`

	// Choice is the chosen slot, "A" or "B".
	Choice string `json:"choice" bson:"choice"`

	// Confidence is the model's self-reported confidence in [0,1].
	// Nil when the model did not report one; such answers are excluded
	// from the confidence histogram rather than counted as zero.
	Confidence *float64 `json:"confidence,omitempty" bson:"confidence,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ChosenLabel resolves the chosen slot to its choice label.
// The second return is false when the recorded pair lacks the chosen slot,
// which indicates stale or corrupt data and is skipped by analytics.
func (a *Answer) ChosenLabel() (string, bool) {
	return a.Choices.Label(a.Choice)
}
