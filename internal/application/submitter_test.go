package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/testutils"
)

type submitFixture struct {
	questions *testutils.MemQuestionStore
	batches   *testutils.MemBatchStore
	units     *testutils.MemUnitStore
	svc       *testutils.FakeBatchService
	submitter *Submitter
}

func newSubmitFixture(t *testing.T, maxLines int) *submitFixture {
	t.Helper()
	f := &submitFixture{
		questions: testutils.NewMemQuestionStore(),
		batches:   testutils.NewMemBatchStore(),
		units:     testutils.NewMemUnitStore(),
		svc:       testutils.NewFakeBatchService(),
	}
	f.submitter = NewSubmitter(
		f.questions, f.batches, f.units, f.svc, nil,
		NewEncoder("gpt-4o-mini"), maxLines,
	)
	return f
}

func (f *submitFixture) createQuestion(t *testing.T, q *domain.Question) {
	t.Helper()
	require.NoError(t, f.questions.Create(context.Background(), q))
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates one batch per chunk sharing a run id", func(t *testing.T) {
		f := newSubmitFixture(t, 5)
		q := testQuestion()
		f.createQuestion(t, q)

		runID, err := f.submitter.Submit(ctx, q.UUID)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, runID)

		// 12 units at 5 lines per chunk -> 3 batches.
		batches, err := f.batches.ListByQuestion(ctx, q.UUID)
		require.NoError(t, err)
		require.Len(t, batches, 3)
		for _, b := range batches {
			assert.Equal(t, runID, b.RunID)
			assert.Equal(t, domain.BatchStatusValidating, b.Projection.Status)
			assert.NotEmpty(t, b.Projection.ProviderID)
			assert.NotEmpty(t, b.Payload)
		}

		assert.Equal(t, 12, f.units.Len())
		assert.Equal(t, 3, f.svc.FileCount())
	})

	t.Run("line counts never split a line", func(t *testing.T) {
		f := newSubmitFixture(t, 5)
		q := testQuestion()
		f.createQuestion(t, q)

		_, err := f.submitter.Submit(ctx, q.UUID)
		require.NoError(t, err)

		batches, err := f.batches.ListByQuestion(ctx, q.UUID)
		require.NoError(t, err)

		var total int
		for _, b := range batches {
			assert.LessOrEqual(t, b.LineCount, 5)
			total += b.LineCount
		}
		assert.Equal(t, 12, total)
	})

	t.Run("unknown question", func(t *testing.T) {
		f := newSubmitFixture(t, 0)
		_, err := f.submitter.Submit(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("question without enough choices", func(t *testing.T) {
		f := newSubmitFixture(t, 0)
		q := testQuestion()
		q.Choices = []string{"only"}
		f.createQuestion(t, q)

		_, err := f.submitter.Submit(ctx, q.UUID)
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("upload failure propagates without internal retry", func(t *testing.T) {
		f := newSubmitFixture(t, 0)
		q := testQuestion()
		f.createQuestion(t, q)
		f.svc.CreateFileErr = errors.New("service unavailable")

		_, err := f.submitter.Submit(ctx, q.UUID)
		var serr *domain.ServiceError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, 0, f.svc.FileCount())
	})

	t.Run("resubmission produces a disjoint run", func(t *testing.T) {
		f := newSubmitFixture(t, 0)
		q := testQuestion()
		f.createQuestion(t, q)

		first, err := f.submitter.Submit(ctx, q.UUID)
		require.NoError(t, err)
		second, err := f.submitter.Submit(ctx, q.UUID)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)

		latest, err := f.batches.LatestByQuestion(ctx, q.UUID)
		require.NoError(t, err)
		assert.Equal(t, second, latest.RunID)
	})
}

func TestRefreshStatus(t *testing.T) {
	ctx := context.Background()
	f := newSubmitFixture(t, 0)
	q := testQuestion()
	f.createQuestion(t, q)

	_, err := f.submitter.Submit(ctx, q.UUID)
	require.NoError(t, err)

	latest, err := f.batches.LatestByQuestion(ctx, q.UUID)
	require.NoError(t, err)
	require.Equal(t, domain.BatchStatusValidating, latest.Projection.Status)

	t.Run("replaces stored projection and payload", func(t *testing.T) {
		f.svc.CompleteBatch(latest.Projection.ProviderID, nil)

		require.NoError(t, f.submitter.RefreshStatus(ctx, latest.ID))

		refreshed, err := f.batches.GetByID(ctx, latest.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BatchStatusCompleted, refreshed.Projection.Status)
		assert.NotEmpty(t, refreshed.Projection.OutputFileID)
	})

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, f.submitter.RefreshStatus(ctx, latest.ID))
		require.NoError(t, f.submitter.RefreshStatus(ctx, latest.ID))

		refreshed, err := f.batches.GetByID(ctx, latest.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BatchStatusCompleted, refreshed.Projection.Status)
	})

	t.Run("unknown batch id", func(t *testing.T) {
		err := f.submitter.RefreshStatus(ctx, "no-such-batch")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
