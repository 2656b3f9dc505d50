package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// Store is the credential service. It is safe for concurrent use.
type Store struct {
	repo Repository

	mu        sync.RWMutex
	listeners []Listener
}

// NewStore creates a store backed by repo.
func NewStore(repo Repository, listeners ...Listener) *Store {
	return &Store{repo: repo, listeners: listeners}
}

// Subscribe registers l for future changes.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Get returns the stored settings. Before the first save it returns empty
// settings and no error.
func (s *Store) Get(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.repo.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return &domain.Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return settings, nil
}

// Credentials returns the stored credential pair.
func (s *Store) Credentials(ctx context.Context) (domain.Credentials, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return domain.Credentials{}, err
	}
	return settings.Credentials, nil
}

// Prepare cleans raw and normalizes its account ID without saving.
func Prepare(raw domain.Credentials) domain.Credentials {
	return domain.Credentials{
		APIToken:  clean(raw.APIToken),
		AccountID: NormalizeAccountID(clean(raw.AccountID)),
	}
}

// Save persists raw after cleaning and notifies listeners. It returns the
// stored settings. A blank token, or the masked form of the stored one,
// keeps the stored token.
func (s *Store) Save(ctx context.Context, raw domain.Credentials) (*domain.Settings, error) {
	previous, err := s.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	creds := Prepare(raw)
	if keepsToken(creds.APIToken, previous) {
		creds.APIToken = previous.APIToken
	}
	settings := &domain.Settings{
		Credentials: creds,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("saving settings: %w", err)
	}

	logger.Info("credentials: settings saved",
		"account_id", settings.AccountID,
		"api_token", settings.Masked().APIToken,
		"changed", previous != settings.Credentials,
	)

	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l.CredentialsChanged(ctx, previous, settings.Credentials)
	}
	return settings, nil
}

func keepsToken(token string, previous domain.Credentials) bool {
	if previous.APIToken == "" {
		return false
	}
	return token == "" || token == previous.Masked().APIToken
}

// Seed stores creds only when nothing has been saved yet. It reports
// whether a save happened.
func (s *Store) Seed(ctx context.Context, creds domain.Credentials) (bool, error) {
	if !Prepare(creds).Complete() {
		return false, nil
	}
	_, err := s.repo.Get(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("loading settings: %w", err)
	}
	if _, err := s.Save(ctx, creds); err != nil {
		return false, err
	}
	return true, nil
}
