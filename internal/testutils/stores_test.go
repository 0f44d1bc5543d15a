package testutils

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefpoll/prefpoll/internal/domain"
)

func TestMemBatchStoreListByQuestion(t *testing.T) {
	ctx := context.Background()
	store := NewMemBatchStore()
	questionUUID := uuid.New()

	// More than ten batches so lexicographic ID ordering would misplace
	// "batch-10" before "batch-9".
	const n = 12
	providerIDs := make([]string, n)
	for i := 0; i < n; i++ {
		providerIDs[i] = fmt.Sprintf("prov-%02d", i)
		require.NoError(t, store.Create(ctx, &domain.Batch{
			QuestionUUID: questionUUID,
			Projection:   domain.BatchProjection{ProviderID: providerIDs[i]},
		}))
	}

	listed, err := store.ListByQuestion(ctx, questionUUID)
	require.NoError(t, err)
	require.Len(t, listed, n)
	for i, b := range listed {
		assert.Equal(t, providerIDs[n-1-i], b.Projection.ProviderID, "newest first")
	}

	latest, err := store.LatestByQuestion(ctx, questionUUID)
	require.NoError(t, err)
	assert.Equal(t, providerIDs[n-1], latest.Projection.ProviderID)
}
