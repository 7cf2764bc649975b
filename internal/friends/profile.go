package friends

import (
	"context"

	"github.com/google/uuid"

	"github.com/averyls/mingle/internal/models"
)

// Profiles assembles public profile views by joining directory identity data
// with the current friend set. Read-only; no side effects.
type Profiles struct {
	store     Store
	directory UserDirectory
}

func NewProfiles(store Store, directory UserDirectory) *Profiles {
	return &Profiles{store: store, directory: directory}
}

// Profile returns the target's identity plus their friends resolved to
// summaries. Fails with ErrUserNotFound if the target does not resolve;
// individual friends that no longer resolve are omitted.
func (p *Profiles) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	identity, err := p.directory.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids, err := p.store.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries, err := resolveSummaries(ctx, p.directory, ids)
	if err != nil {
		return nil, err
	}

	return &models.Profile{User: *identity, Friends: summaries}, nil
}
