package mongodb

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/prefpoll/prefpoll/internal/domain"
)

func TestRegistryUUIDRoundTrip(t *testing.T) {
	reg := Registry()
	q := domain.Question{
		UUID:     uuid.New(),
		Template: "Pick one.",
		Choices:  []string{"left", "right"},
	}

	data, err := bson.MarshalWithRegistry(reg, q)
	require.NoError(t, err)

	// The identifier is stored in its canonical string form.
	var doc bson.M
	require.NoError(t, bson.Unmarshal(data, &doc))
	assert.Equal(t, q.UUID.String(), doc["uuid"])

	var decoded domain.Question
	require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &decoded))
	assert.Equal(t, q.UUID, decoded.UUID)
}

func TestRegistryUUIDDecodeErrors(t *testing.T) {
	reg := Registry()

	data, err := bson.Marshal(bson.M{"uuid": "not-a-uuid"})
	require.NoError(t, err)

	var q domain.Question
	err = bson.UnmarshalWithRegistry(reg, data, &q)
	assert.ErrorContains(t, err, "parse uuid")
}
