package connection

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// initCheckTimeout bounds the shared credential check.
const initCheckTimeout = 30 * time.Second

// InitState is the memoized outcome of checking the saved credentials:
// one of Unchecked, Valid or Invalid.
type InitState interface {
	initState()
}

// Unchecked means no check has run since start or the last Reset.
type Unchecked struct{}

// Valid means the saved credentials were accepted.
type Valid struct{}

// Invalid means the saved credentials are missing or were rejected.
type Invalid struct {
	Message string
}

func (Unchecked) initState() {}
func (Valid) initState()     {}
func (Invalid) initState()   {}

// CredentialSource supplies the saved credentials.
type CredentialSource interface {
	Credentials(ctx context.Context) (domain.Credentials, error)
}

// Initializer answers "is the API usable" once per process and remembers
// the answer until Reset. Concurrent first callers share a single check.
type Initializer struct {
	source    CredentialSource
	validator *Validator

	group      singleflight.Group
	mu         sync.Mutex
	state      InitState
	generation uint64
}

// NewInitializer creates an initializer in the Unchecked state.
func NewInitializer(source CredentialSource, validator *Validator) *Initializer {
	return &Initializer{source: source, validator: validator, state: Unchecked{}}
}

// State returns the current memoized state.
func (i *Initializer) State() InitState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Reset forgets the memoized state.
func (i *Initializer) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = Unchecked{}
	i.generation++
}

// CredentialsChanged resets the initializer.
func (i *Initializer) CredentialsChanged(context.Context, domain.Credentials, domain.Credentials) {
	i.Reset()
}

// Initialize reports whether the saved credentials are usable, checking
// them only while the state is Unchecked.
func (i *Initializer) Initialize(ctx context.Context) bool {
	i.mu.Lock()
	state, gen := i.state, i.generation
	i.mu.Unlock()

	switch state.(type) {
	case Valid:
		return true
	case Invalid:
		return false
	}

	// The shared check is detached from any one caller's cancellation.
	ch := i.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), initCheckTimeout)
		defer cancel()
		next := i.check(checkCtx)

		i.mu.Lock()
		defer i.mu.Unlock()
		if i.generation == gen {
			i.state = next
		}
		return next, nil
	})

	select {
	case res := <-ch:
		_, ok := res.Val.(Valid)
		return ok
	case <-ctx.Done():
		return false
	}
}

func (i *Initializer) check(ctx context.Context) InitState {
	creds, err := i.source.Credentials(ctx)
	if err != nil {
		// Storage errors are not a verdict on the credentials.
		logger.Error("connection: loading credentials failed", "error", err)
		return Unchecked{}
	}
	if !creds.Complete() {
		return Invalid{Message: msgMissingCredentials}
	}

	status := i.validator.Check(ctx, creds)
	if !status.Valid {
		logger.Debug("connection: credentials could not be validated", "account_id", creds.AccountID, "message", status.ErrorMessage)
		return Invalid{Message: status.ErrorMessage}
	}
	logger.Debug("connection: credentials are valid", "account_id", creds.AccountID)
	return Valid{}
}
