package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAddr struct {
	IP   string
	Port int
}

func TestPeerSet_AddIsIdempotent(t *testing.T) {
	ps := NewPeerSet(testAddr{"127.0.0.1", 5000})

	added := ps.Add(testAddr{"127.0.0.1", 5001})
	require.True(t, added, "first Add of a new address should report added")
	assert.Equal(t, 2, ps.Count())

	addedAgain := ps.Add(testAddr{"127.0.0.1", 5001})
	assert.False(t, addedAgain, "second Add of the same address is a no-op")
	assert.Equal(t, 2, ps.Count(), "count unchanged after duplicate Add")
}

func TestPeerSet_OthersExcludesSelf(t *testing.T) {
	self := testAddr{"127.0.0.1", 5000}
	ps := NewPeerSet(self)
	ps.Add(testAddr{"127.0.0.1", 5001})
	ps.Add(testAddr{"127.0.0.1", 5002})

	others := ps.Others()
	assert.Len(t, others, 2)
	assert.NotContains(t, others, self)
}

func TestPeerSet_AddressesIncludesSelfInInsertionOrder(t *testing.T) {
	self := testAddr{"127.0.0.1", 5000}
	b := testAddr{"127.0.0.1", 5002}
	ps := NewPeerSet(self)
	ps.Add(b)

	assert.Equal(t, []testAddr{self, b}, ps.Addresses())
}

func TestPeerSet_Majority(t *testing.T) {
	ps := NewPeerSet(testAddr{"127.0.0.1", 5000})
	assert.Equal(t, 1, ps.Majority(), "single-node cluster needs only itself")

	ps.Add(testAddr{"127.0.0.1", 5001})
	ps.Add(testAddr{"127.0.0.1", 5002})
	ps.Add(testAddr{"127.0.0.1", 5003})
	ps.Add(testAddr{"127.0.0.1", 5004})

	assert.Equal(t, 3, ps.Majority(), "5-node cluster needs 3 for quorum")
}

func TestPeerSet_Contains(t *testing.T) {
	self := testAddr{"127.0.0.1", 5000}
	ps := NewPeerSet(self)
	assert.True(t, ps.Contains(self))
	assert.False(t, ps.Contains(testAddr{"127.0.0.1", 9999}))
}
