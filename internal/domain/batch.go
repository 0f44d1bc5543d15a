package domain

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the typed projection of the provider's batch lifecycle
// state. Unknown provider states map to BatchStatusUnknown rather than
// failing, since new states must not break status refresh.
type BatchStatus string

const (
	BatchStatusValidating BatchStatus = "validating"
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusFinalizing BatchStatus = "finalizing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusExpired    BatchStatus = "expired"
	BatchStatusCancelling BatchStatus = "cancelling"
	BatchStatusCancelled  BatchStatus = "cancelled"
	BatchStatusUnknown    BatchStatus = "unknown"
)

// Terminal reports whether the provider will never change this status
// again. Terminal batches are skipped by the refresh job.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusExpired, BatchStatusCancelled:
		return true
	}
	return false
}

// ParseBatchStatus maps a provider status string onto the typed enum.
func ParseBatchStatus(s string) BatchStatus {
	switch BatchStatus(s) {
	case BatchStatusValidating, BatchStatusInProgress, BatchStatusFinalizing,
		BatchStatusCompleted, BatchStatusFailed, BatchStatusExpired,
		BatchStatusCancelling, BatchStatusCancelled:
		return BatchStatus(s)
	}
	return BatchStatusUnknown
}

// BatchProjection is the small typed view parsed from the provider's
// opaque response payload at the boundary. Internal code reads these
// fields and never key-walks the raw JSON.
type BatchProjection struct {
	// ProviderID is the provider's identifier for the submitted batch.
	ProviderID string `json:"providerId" bson:"providerId"`

	// Status is the provider lifecycle state mapped onto BatchStatus.
	Status BatchStatus `json:"status" bson:"status"`

	// OutputFileID references the completed output resource. Empty until
	// the batch completes.
	OutputFileID string `json:"outputFileId,omitempty" bson:"outputFileId,omitempty"`
}

// Batch is one chunk of request lines submitted to the external batch
// service. A question has one-to-many batches; every batch of one submit
// invocation shares a run identifier. Append-only except for status
// refresh, which replaces the stored payload and projection wholesale.
type Batch struct {
	ID string `json:"id" bson:"_id,omitempty"`

	QuestionUUID uuid.UUID `json:"questionUuid" bson:"questionUuid"`

	// RunID is generated once per submit invocation and shared by all
	// chunks of that submission.
	RunID uuid.UUID `json:"runId" bson:"runId"`

	// LineCount is the number of request lines in this chunk.
	LineCount int `json:"lineCount" bson:"lineCount"`

	// Projection is the typed view of the latest provider payload.
	Projection BatchProjection `json:"projection" bson:"projection"`

	// Payload is the provider's full response, stored verbatim.
	Payload json.RawMessage `json:"payload" bson:"payload"`

	// Ingested records that this batch's output was already processed.
	// Ingestion happens at most once per batch; chunks of the same run
	// are ingested independently.
	Ingested bool `json:"ingested" bson:"ingested"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// RequestUnit is the submission-time snapshot of one (context, pair)
// comparison. The unit token travels through the external service as the
// request's custom identifier and is the only channel carrying context and
// pair assignment back; resolving the token against this snapshot keeps
// decoding immune to later edits of the question and to separator
// characters inside labels.
type RequestUnit struct {
	// Token is a short opaque identifier used as the batch custom_id.
	Token string `json:"token" bson:"_id"`

	QuestionUUID uuid.UUID `json:"questionUuid" bson:"questionUuid"`

	RunID uuid.UUID `json:"runId" bson:"runId"`

	// Context is the assignment snapshotted at submission time.
	Context Assignment `json:"context" bson:"context"`

	// Pair is the choice pair snapshotted at submission time.
	Pair Pair `json:"pair" bson:"pair"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// NewUnitToken returns a fresh opaque unit token. The hex form of a v4
// UUID stays well under the provider's 64-character custom_id limit.
func NewUnitToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
