package friends

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(hex byte) uuid.UUID {
	var b [16]byte
	b[15] = hex
	u, _ := uuid.FromBytes(b[:])
	return u
}

func TestRankCandidatesMutualCounting(t *testing.T) {
	a, b, c, d := id(1), id(2), id(3), id(4)

	// Graph: A-B, A-C, B-D, C-D. Target A, friends {B, C}.
	secondHop := map[uuid.UUID][]uuid.UUID{
		b: {a, d},
		c: {a, d},
	}

	ranked := rankCandidates(a, []uuid.UUID{b, c}, secondHop, 5)
	require.Len(t, ranked, 1)
	assert.Equal(t, d, ranked[0].id)
	assert.Equal(t, 2, ranked[0].mutual)
}

func TestRankCandidatesExcludesSelfAndFriends(t *testing.T) {
	a, b, c := id(1), id(2), id(3)

	// B and C are already friends with A and with each other; the only ids in
	// the second hop are A itself and A's existing friends.
	secondHop := map[uuid.UUID][]uuid.UUID{
		b: {a, c},
		c: {a, b},
	}

	ranked := rankCandidates(a, []uuid.UUID{b, c}, secondHop, 5)
	assert.Empty(t, ranked)
}

func TestRankCandidatesTieBreaksByAscendingID(t *testing.T) {
	a, b, c := id(1), id(2), id(3)
	low, high := id(0x10), id(0x20)

	secondHop := map[uuid.UUID][]uuid.UUID{
		b: {high, low},
		c: {low, high},
	}

	ranked := rankCandidates(a, []uuid.UUID{b, c}, secondHop, 5)
	require.Len(t, ranked, 2)
	assert.Equal(t, low, ranked[0].id)
	assert.Equal(t, high, ranked[1].id)
	assert.Equal(t, ranked[0].mutual, ranked[1].mutual)
}

func TestRankCandidatesHonorsLimit(t *testing.T) {
	a, b := id(1), id(2)

	candidates := make([]uuid.UUID, 8)
	for i := range candidates {
		candidates[i] = id(byte(0x30 + i))
	}
	secondHop := map[uuid.UUID][]uuid.UUID{b: candidates}

	ranked := rankCandidates(a, []uuid.UUID{b}, secondHop, 5)
	assert.Len(t, ranked, 5)
}
