package friends

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/averyls/mingle/internal/models"
)

// DefaultRecommendationLimit caps how many suggestions one call returns.
const DefaultRecommendationLimit = 5

// Recommender suggests new connections by counting mutual friends. It is a
// read-only consumer of the Store: one batch read of all second-hop friend
// sets, then a pure in-memory ranking pass.
type Recommender struct {
	store     Store
	directory UserDirectory
	cache     RecommendationCache
	limit     int
}

func NewRecommender(store Store, directory UserDirectory, cache RecommendationCache, limit int) *Recommender {
	if cache == nil {
		cache = nopCache{}
	}
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	return &Recommender{store: store, directory: directory, cache: cache, limit: limit}
}

// Recommend returns up to the configured limit of suggested users the target
// is not yet connected to, ranked by mutual friend count descending with ties
// broken by ascending id. A target with no friends gets the cold-start
// fallback: arbitrary directory users, in directory order.
//
// The computation runs over a point-in-time read of the graph; it tolerates
// the graph changing between invocations.
func (r *Recommender) Recommend(ctx context.Context, target uuid.UUID) ([]models.Recommendation, error) {
	if recs, ok := r.cache.Get(ctx, target); ok {
		return recs, nil
	}

	friendIDs, err := r.store.ListFriends(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("reading friend set: %w", err)
	}

	if len(friendIDs) == 0 {
		return r.coldStart(ctx, target)
	}

	secondHop, err := r.store.FriendSets(ctx, friendIDs)
	if err != nil {
		return nil, fmt.Errorf("reading second-hop sets: %w", err)
	}

	ranked := rankCandidates(target, friendIDs, secondHop, r.limit)

	ids := make([]uuid.UUID, len(ranked))
	for i, c := range ranked {
		ids[i] = c.id
	}
	resolved, err := r.directory.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	recs := make([]models.Recommendation, 0, len(ranked))
	for _, c := range ranked {
		u, ok := resolved[c.id]
		if !ok {
			// Candidate account no longer resolves; skip it.
			continue
		}
		recs = append(recs, models.Recommendation{User: u, MutualCount: c.mutual})
	}

	r.cache.Set(ctx, target, recs)
	return recs, nil
}

// coldStart suggests arbitrary users for a target with an empty friend set.
func (r *Recommender) coldStart(ctx context.Context, target uuid.UUID) ([]models.Recommendation, error) {
	users, err := r.directory.List(ctx, target, r.limit)
	if err != nil {
		return nil, err
	}
	recs := make([]models.Recommendation, 0, len(users))
	for _, u := range users {
		recs = append(recs, models.Recommendation{User: u})
	}
	return recs, nil
}

type candidate struct {
	id     uuid.UUID
	mutual int
}

// rankCandidates aggregates the second-hop multiset into ranked candidates.
// The target itself and everyone already in its friend set are excluded.
// Pure function; all I/O happens before it runs.
func rankCandidates(target uuid.UUID, friendIDs []uuid.UUID, secondHop map[uuid.UUID][]uuid.UUID, limit int) []candidate {
	friends := make(map[uuid.UUID]bool, len(friendIDs))
	for _, id := range friendIDs {
		friends[id] = true
	}

	counts := make(map[uuid.UUID]int)
	for _, friendOfFriends := range secondHop {
		for _, id := range friendOfFriends {
			if id == target || friends[id] {
				continue
			}
			counts[id]++
		}
	}

	ranked := make([]candidate, 0, len(counts))
	for id, n := range counts {
		ranked = append(ranked, candidate{id: id, mutual: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].mutual != ranked[j].mutual {
			return ranked[i].mutual > ranked[j].mutual
		}
		return ranked[i].id.String() < ranked[j].id.String()
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
