package application

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/ports"
)

// Elo constants: every label starts at 1000 and each outcome moves both
// ratings by K times the surprise.
const (
	eloInitialRating = 1000.0
	eloKFactor       = 32.0
)

// Analytics computes the read-only aggregations over the answers of a
// question's most recent run. Every query recomputes from the current
// answer set; there is no caching or invalidation bookkeeping.
type Analytics struct {
	questions ports.QuestionStore
	batches   ports.BatchStore
	answers   ports.AnswerStore
}

// NewAnalytics creates an Analytics engine.
func NewAnalytics(questions ports.QuestionStore, batches ports.BatchStore, answers ports.AnswerStore) *Analytics {
	return &Analytics{questions: questions, batches: batches, answers: answers}
}

// latestAnswers resolves the question, locates its most recent run via
// the newest batch, and returns that run's answers in creation order.
// Filters are equality predicates keyed by the question's declared
// context dimensions; unrecognized keys are ignored. A question with no
// runs yet has an empty answer set, which is valid, not an error.
func (a *Analytics) latestAnswers(
	ctx context.Context,
	questionUUID uuid.UUID,
	filters map[string]string,
) (*domain.Question, []*domain.Answer, error) {
	q, err := a.questions.GetByUUID(ctx, questionUUID)
	if err != nil {
		return nil, nil, err
	}

	latest, err := a.batches.LatestByQuestion(ctx, questionUUID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return q, nil, nil
		}
		return nil, nil, err
	}

	screened := make(map[string]string)
	for key, value := range filters {
		if _, declared := q.Context[key]; declared && value != "" {
			screened[key] = value
		}
	}

	answers, err := a.answers.ListByRun(ctx, questionUUID, latest.RunID, screened)
	if err != nil {
		return nil, nil, err
	}
	return q, answers, nil
}

// PreferenceCounts accumulates how often each choice label won. Answers
// whose recorded pair lacks the chosen slot are skipped.
func (a *Analytics) PreferenceCounts(ctx context.Context, questionUUID uuid.UUID, filters map[string]string) (map[string]int, error) {
	_, answers, err := a.latestAnswers(ctx, questionUUID, filters)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, ans := range answers {
		if label, ok := ans.ChosenLabel(); ok {
			counts[label]++
		}
	}
	return counts, nil
}

// Heatmap is the head-to-head win matrix: row = winner, column = loser.
// Diagonal cells are nil because a label never competes against itself.
type Heatmap struct {
	Choices []string `json:"choices"`
	Matrix  [][]*int `json:"matrix"`
}

// PreferenceHeatmap builds the n×n directed win matrix over the
// deduplicated choice list. Answers referencing labels outside the
// current choice list (stale data from an edited question) are skipped.
func (a *Analytics) PreferenceHeatmap(ctx context.Context, questionUUID uuid.UUID, filters map[string]string) (*Heatmap, error) {
	q, answers, err := a.latestAnswers(ctx, questionUUID, filters)
	if err != nil {
		return nil, err
	}

	choices := q.DedupedChoices()
	index := make(map[string]int, len(choices))
	for i, c := range choices {
		index[c] = i
	}

	matrix := make([][]*int, len(choices))
	for i := range matrix {
		matrix[i] = make([]*int, len(choices))
		for j := range matrix[i] {
			if i != j {
				matrix[i][j] = new(int)
			}
		}
	}

	for _, ans := range answers {
		ia, okA := index[ans.Choices.A]
		ib, okB := index[ans.Choices.B]
		if !okA || !okB {
			continue
		}
		switch ans.Choice {
		case "A":
			*matrix[ia][ib]++
		case "B":
			*matrix[ib][ia]++
		}
	}

	return &Heatmap{Choices: choices, Matrix: matrix}, nil
}

// EloRating is one label's final rating.
type EloRating struct {
	Choice string  `json:"choice"`
	Rating float64 `json:"rating"`
}

// EloRatings processes the run's answers in creation order, updating both
// sides of each comparison. Elo is path-dependent, so the persisted
// per-run sequence number provides the stable total order. Output is
// sorted by rating descending, rounded to 2 decimal places.
func (a *Analytics) EloRatings(ctx context.Context, questionUUID uuid.UUID, filters map[string]string) ([]EloRating, error) {
	q, answers, err := a.latestAnswers(ctx, questionUUID, filters)
	if err != nil {
		return nil, err
	}

	choices := q.DedupedChoices()
	ratings := make(map[string]float64, len(choices))
	for _, c := range choices {
		ratings[c] = eloInitialRating
	}

	for _, ans := range answers {
		ra, okA := ratings[ans.Choices.A]
		rb, okB := ratings[ans.Choices.B]
		if !okA || !okB {
			continue
		}

		expectedA := 1 / (1 + math.Pow(10, (rb-ra)/400))
		expectedB := 1 - expectedA

		var scoreA, scoreB float64
		switch ans.Choice {
		case "A":
			scoreA, scoreB = 1, 0
		case "B":
			scoreA, scoreB = 0, 1
		default:
			continue
		}

		ratings[ans.Choices.A] = ra + eloKFactor*(scoreA-expectedA)
		ratings[ans.Choices.B] = rb + eloKFactor*(scoreB-expectedB)
	}

	ranked := make([]EloRating, 0, len(choices))
	for _, c := range choices {
		ranked = append(ranked, EloRating{Choice: c, Rating: math.Round(ratings[c]*100) / 100})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rating > ranked[j].Rating })
	return ranked, nil
}

// Distribution is a 10-bucket histogram over [0,1) confidence values.
type Distribution struct {
	Labels []string `json:"labels"`
	Counts [10]int  `json:"counts"`
}

// ConfidenceDistribution buckets confidences with width 0.1; values at or
// above 0.999 clamp into the last bucket. Answers with no confidence are
// excluded entirely, not counted as zero.
func (a *Analytics) ConfidenceDistribution(ctx context.Context, questionUUID uuid.UUID, filters map[string]string) (*Distribution, error) {
	_, answers, err := a.latestAnswers(ctx, questionUUID, filters)
	if err != nil {
		return nil, err
	}

	dist := &Distribution{
		Labels: []string{
			"0.0-0.1", "0.1-0.2", "0.2-0.3", "0.3-0.4", "0.4-0.5",
			"0.5-0.6", "0.6-0.7", "0.7-0.8", "0.8-0.9", "0.9-1.0",
		},
	}

	for _, ans := range answers {
		if ans.Confidence == nil {
			continue
		}
		c := *ans.Confidence
		if c < 0 || c > 1 {
			continue
		}

		idx := int(c * 10)
		if c >= 0.999 || idx > 9 {
			idx = 9
		}
		dist.Counts[idx]++
	}
	return dist, nil
}

// FlowLink is one directed winner→loser edge with its accumulated count.
type FlowLink struct {
	From string `json:"from"`
	To   string `json:"to"`
	Flow int    `json:"flow"`
}

// Flows is the directed preference-flow graph: node labels in first-seen
// order across processed answers, plus the weighted edges.
type Flows struct {
	Labels []string   `json:"labels"`
	Links  []FlowLink `json:"links"`
}

// PreferenceFlows accumulates directed winner→loser edge counts. Answers
// missing either pair label are skipped. Labels and links keep first-seen
// order so the flow diagram renders deterministically.
func (a *Analytics) PreferenceFlows(ctx context.Context, questionUUID uuid.UUID, filters map[string]string) (*Flows, error) {
	_, answers, err := a.latestAnswers(ctx, questionUUID, filters)
	if err != nil {
		return nil, err
	}

	flows := &Flows{}
	labelSeen := make(map[string]struct{})
	edgeIndex := make(map[[2]string]int)

	addLabel := func(label string) {
		if _, ok := labelSeen[label]; !ok {
			labelSeen[label] = struct{}{}
			flows.Labels = append(flows.Labels, label)
		}
	}

	for _, ans := range answers {
		if ans.Choices.A == "" || ans.Choices.B == "" {
			continue
		}
		winner, ok := ans.ChosenLabel()
		if !ok {
			continue
		}
		loser := ans.Choices.B
		if winner == ans.Choices.B {
			loser = ans.Choices.A
		}

		addLabel(ans.Choices.A)
		addLabel(ans.Choices.B)

		edge := [2]string{winner, loser}
		if idx, ok := edgeIndex[edge]; ok {
			flows.Links[idx].Flow++
		} else {
			edgeIndex[edge] = len(flows.Links)
			flows.Links = append(flows.Links, FlowLink{From: winner, To: loser, Flow: 1})
		}
	}
	return flows, nil
}
