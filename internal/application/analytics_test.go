package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/testutils"
)

type analyticsFixture struct {
	questions *testutils.MemQuestionStore
	batches   *testutils.MemBatchStore
	answers   *testutils.MemAnswerStore
	analytics *Analytics
	runID     uuid.UUID
}

// newAnalyticsFixture seeds a question and one batch so the analytics
// layer resolves a latest run to read answers from.
func newAnalyticsFixture(t *testing.T, q *domain.Question) *analyticsFixture {
	t.Helper()

	f := &analyticsFixture{
		questions: testutils.NewMemQuestionStore(),
		batches:   testutils.NewMemBatchStore(),
		answers:   testutils.NewMemAnswerStore(),
		runID:     uuid.New(),
	}
	f.analytics = NewAnalytics(f.questions, f.batches, f.answers)

	ctx := context.Background()
	require.NoError(t, f.questions.Create(ctx, q))
	require.NoError(t, f.batches.Create(ctx, &domain.Batch{
		QuestionUUID: q.UUID,
		RunID:        f.runID,
		Projection:   domain.BatchProjection{Status: domain.BatchStatusCompleted},
	}))
	return f
}

func (f *analyticsFixture) addAnswers(t *testing.T, q *domain.Question, answers ...*domain.Answer) {
	t.Helper()
	for _, a := range answers {
		a.QuestionUUID = q.UUID
		a.RunID = f.runID
	}
	require.NoError(t, f.answers.CreateMany(context.Background(), f.runID, answers))
}

func won(a, b, slot string) *domain.Answer {
	return &domain.Answer{Choices: domain.Pair{A: a, B: b}, Choice: slot}
}

func wonWith(a, b, slot string, confidence float64) *domain.Answer {
	ans := won(a, b, slot)
	ans.Confidence = &confidence
	return ans
}

func TestPreferenceCounts(t *testing.T) {
	ctx := context.Background()

	t.Run("counts wins per label", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		f.addAnswers(t, q,
			won("Germany", "Brazil", "A"),
			won("Germany", "Japan", "A"),
			won("Brazil", "Japan", "B"),
		)

		counts, err := f.analytics.PreferenceCounts(ctx, q.UUID, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Germany": 2, "Japan": 1}, counts)
	})

	t.Run("answers with an unknown slot are skipped", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		f.addAnswers(t, q, won("Germany", "Brazil", "C"))

		counts, err := f.analytics.PreferenceCounts(ctx, q.UUID, nil)
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("no batches yields an empty result", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		f.batches = testutils.NewMemBatchStore()
		f.analytics = NewAnalytics(f.questions, f.batches, f.answers)

		counts, err := f.analytics.PreferenceCounts(ctx, q.UUID, nil)
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("unknown question", func(t *testing.T) {
		f := newAnalyticsFixture(t, testQuestion())

		_, err := f.analytics.PreferenceCounts(ctx, uuid.New(), nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPreferenceHeatmap(t *testing.T) {
	ctx := context.Background()

	t.Run("directed wins with nil diagonal", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		f.addAnswers(t, q,
			won("Germany", "Brazil", "A"),
			won("Germany", "Brazil", "A"),
			won("Germany", "Brazil", "B"),
		)

		hm, err := f.analytics.PreferenceHeatmap(ctx, q.UUID, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Germany", "Brazil", "Japan"}, hm.Choices)
		require.Len(t, hm.Matrix, 3)

		for i := range hm.Matrix {
			assert.Nil(t, hm.Matrix[i][i])
		}
		// Row is the winner, column is the loser.
		require.NotNil(t, hm.Matrix[0][1])
		assert.Equal(t, 2, *hm.Matrix[0][1])
		require.NotNil(t, hm.Matrix[1][0])
		assert.Equal(t, 1, *hm.Matrix[1][0])
		require.NotNil(t, hm.Matrix[0][2])
		assert.Equal(t, 0, *hm.Matrix[0][2])
	})

	t.Run("stale labels outside the current choices are skipped", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		f.addAnswers(t, q,
			won("Germany", "Atlantis", "A"),
			won("Germany", "Brazil", "A"),
		)

		hm, err := f.analytics.PreferenceHeatmap(ctx, q.UUID, nil)
		require.NoError(t, err)
		require.NotNil(t, hm.Matrix[0][1])
		assert.Equal(t, 1, *hm.Matrix[0][1])
	})
}

func TestEloRatings(t *testing.T) {
	ctx := context.Background()

	t.Run("single comparison moves both sides by sixteen", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		f.addAnswers(t, q, won("Germany", "Brazil", "A"))

		ranked, err := f.analytics.EloRatings(ctx, q.UUID, nil)
		require.NoError(t, err)
		require.Len(t, ranked, 3)

		byChoice := make(map[string]float64)
		for _, r := range ranked {
			byChoice[r.Choice] = r.Rating
		}
		assert.InDelta(t, 1016.0, byChoice["Germany"], 1e-9)
		assert.InDelta(t, 984.0, byChoice["Brazil"], 1e-9)
		assert.InDelta(t, 1000.0, byChoice["Japan"], 1e-9)
	})

	t.Run("ratings are path dependent", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		// Germany wins first, then loses the rematch. The rematch upset
		// transfers more than sixteen points, so Brazil ends ahead.
		f.addAnswers(t, q,
			won("Germany", "Brazil", "A"),
			won("Germany", "Brazil", "B"),
		)

		ranked, err := f.analytics.EloRatings(ctx, q.UUID, nil)
		require.NoError(t, err)

		byChoice := make(map[string]float64)
		for _, r := range ranked {
			byChoice[r.Choice] = r.Rating
		}
		assert.InDelta(t, 998.53, byChoice["Germany"], 0.001)
		assert.InDelta(t, 1001.47, byChoice["Brazil"], 0.001)
		assert.InDelta(t, 2000.0, byChoice["Germany"]+byChoice["Brazil"], 0.01)
	})

	t.Run("sorted by rating descending", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		f.addAnswers(t, q,
			won("Germany", "Brazil", "A"),
			won("Japan", "Brazil", "A"),
			won("Germany", "Japan", "A"),
		)

		ranked, err := f.analytics.EloRatings(ctx, q.UUID, nil)
		require.NoError(t, err)
		for i := 1; i < len(ranked); i++ {
			assert.GreaterOrEqual(t, ranked[i-1].Rating, ranked[i].Rating)
		}
		assert.Equal(t, "Germany", ranked[0].Choice)
	})

	t.Run("stale labels leave ratings untouched", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		f.addAnswers(t, q, won("Germany", "Atlantis", "A"))

		ranked, err := f.analytics.EloRatings(ctx, q.UUID, nil)
		require.NoError(t, err)
		for _, r := range ranked {
			assert.InDelta(t, 1000.0, r.Rating, 1e-9)
		}
	})
}

func TestConfidenceDistribution(t *testing.T) {
	ctx := context.Background()

	t.Run("buckets by tenths", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		f.addAnswers(t, q,
			wonWith("Germany", "Brazil", "A", 0.05),
			wonWith("Germany", "Brazil", "A", 0.85),
			wonWith("Germany", "Brazil", "A", 0.85),
			won("Germany", "Brazil", "B"),
		)

		dist, err := f.analytics.ConfidenceDistribution(ctx, q.UUID, nil)
		require.NoError(t, err)
		assert.Equal(t, "0.0-0.1", dist.Labels[0])
		assert.Equal(t, "0.9-1.0", dist.Labels[9])
		assert.Equal(t, 1, dist.Counts[0])
		assert.Equal(t, 2, dist.Counts[8])

		total := 0
		for _, c := range dist.Counts {
			total += c
		}
		// The answer without a confidence is excluded, not counted as zero.
		assert.Equal(t, 3, total)
	})

	t.Run("top edge clamps into the last bucket", func(t *testing.T) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)
		f.addAnswers(t, q,
			wonWith("Germany", "Brazil", "A", 1.0),
			wonWith("Germany", "Brazil", "A", 0.999),
		)

		dist, err := f.analytics.ConfidenceDistribution(ctx, q.UUID, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, dist.Counts[9])
	})
}

func TestPreferenceFlows(t *testing.T) {
	ctx := context.Background()

	q := testQuestion()
	f := newAnalyticsFixture(t, q)
	f.addAnswers(t, q,
		won("Brazil", "Germany", "B"),
		won("Germany", "Japan", "A"),
		won("Brazil", "Germany", "B"),
		won("Japan", "Brazil", "A"),
	)

	flows, err := f.analytics.PreferenceFlows(ctx, q.UUID, nil)
	require.NoError(t, err)

	// Labels keep first-seen order across processed answers.
	assert.Equal(t, []string{"Brazil", "Germany", "Japan"}, flows.Labels)
	require.Len(t, flows.Links, 3)
	assert.Equal(t, FlowLink{From: "Germany", To: "Brazil", Flow: 2}, flows.Links[0])
	assert.Equal(t, FlowLink{From: "Germany", To: "Japan", Flow: 1}, flows.Links[1])
	assert.Equal(t, FlowLink{From: "Japan", To: "Brazil", Flow: 1}, flows.Links[2])
}

func TestAnalyticsFilters(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*analyticsFixture, *domain.Question) {
		q := testQuestion()
		f := newAnalyticsFixture(t, q)

		turkish := won("Germany", "Brazil", "A")
		turkish.Context = domain.Assignment{"country": "Turkey", "gender": "man"}
		mexican := won("Germany", "Brazil", "B")
		mexican.Context = domain.Assignment{"country": "Mexico", "gender": "man"}
		f.addAnswers(t, q, turkish, mexican)
		return f, q
	}

	t.Run("declared key narrows the answers", func(t *testing.T) {
		f, q := seed(t)

		counts, err := f.analytics.PreferenceCounts(ctx, q.UUID, map[string]string{"country": "Turkey"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Germany": 1}, counts)
	})

	t.Run("undeclared key is ignored", func(t *testing.T) {
		f, q := seed(t)

		counts, err := f.analytics.PreferenceCounts(ctx, q.UUID, map[string]string{"planet": "Mars"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Germany": 1, "Brazil": 1}, counts)
	})

	t.Run("empty value is ignored", func(t *testing.T) {
		f, q := seed(t)

		counts, err := f.analytics.PreferenceCounts(ctx, q.UUID, map[string]string{"country": ""})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Germany": 1, "Brazil": 1}, counts)
	})
}
