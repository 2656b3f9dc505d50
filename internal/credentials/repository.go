package credentials

import (
	"context"

	"github.com/ignite/drip-forwarder/internal/domain"
)

// Repository persists the single settings row.
type Repository interface {
	// Get returns the stored settings, or ErrNotFound before the first save.
	Get(ctx context.Context) (*domain.Settings, error)

	// Save upserts the settings.
	Save(ctx context.Context, s *domain.Settings) error
}

// Listener is told about every credential change after it is persisted.
type Listener interface {
	CredentialsChanged(ctx context.Context, previous, current domain.Credentials)
}
