package mongo

import (
	"testing"

	fleetrepo "buscharter/internal/fleet/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestAssignmentsLiveIndex(t *testing.T) {
	def, ok := Collections()[fleetrepo.AssignmentsCollection]
	require.True(t, ok)

	live := def.Indexes[0]
	require.NotNil(t, live.Options)
	require.NotNil(t, live.Options.Unique)
	assert.True(t, *live.Options.Unique)
	assert.Equal(t, bson.M{"live": true}, live.Options.PartialFilterExpression)
	assert.Equal(t, bson.D{
		{Key: "tenant_id", Value: 1},
		{Key: "vehicle_id", Value: 1},
		{Key: "trip_id", Value: 1},
	}, live.Keys)
}

func TestLocksExpire(t *testing.T) {
	def := Collections()[fleetrepo.LocksCollection]
	require.Len(t, def.Indexes, 1)
	require.NotNil(t, def.Indexes[0].Options.ExpireAfterSeconds)
	assert.Equal(t, int32(0), *def.Indexes[0].Options.ExpireAfterSeconds)
}

func TestEveryIndexIsTenantScoped(t *testing.T) {
	for name, def := range Collections() {
		if name == fleetrepo.LocksCollection {
			continue
		}
		for _, idx := range def.Indexes {
			keys, ok := idx.Keys.(bson.D)
			require.True(t, ok, name)
			assert.Equal(t, "tenant_id", keys[0].Key, "%s index must lead with tenant_id", name)
		}
	}
}
