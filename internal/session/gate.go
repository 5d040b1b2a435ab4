// Package session holds the operator's credential: the single source of
// truth for who is logged in, persisted so it survives a restart.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"ticketDesk/internal/logging"
	"ticketDesk/models"
)

// ErrIncompleteCredential is returned by Set for a credential missing its
// token, user id or role.
var ErrIncompleteCredential = errors.New("incomplete credential")

// Store is the durable slot the credential is serialized into.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, value []byte) error
	Delete(ctx context.Context) error
}

// Gate owns the current credential. Consumers read it through Current or
// Token; only Set and Clear mutate it. Safe for concurrent use.
type Gate struct {
	mu     sync.RWMutex
	store  Store
	cur    *models.Credential
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *Gate) { g.logger = l.With("component", "session") }
}

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate returns an empty gate over store. Call Initialize to adopt a
// previously persisted credential.
func NewGate(store Store, opts ...Option) *Gate {
	g := &Gate{store: store, logger: logging.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Initialize adopts the persisted credential if it is well-formed, complete
// and not expired. Anything else leaves the gate empty; it never fails startup.
func (g *Gate) Initialize(ctx context.Context) {
	raw, err := g.store.Load(ctx)
	if err != nil {
		g.logger.Warn("read stored credential", "error", err)
		g.reset(nil)
		return
	}
	if raw == nil {
		g.reset(nil)
		return
	}

	var c models.Credential
	if err := json.Unmarshal(raw, &c); err != nil {
		g.logger.Warn("stored credential is malformed; discarding", "error", err)
		g.discard(ctx)
		return
	}
	if !c.Complete() {
		g.logger.Warn("stored credential is incomplete; discarding")
		g.discard(ctx)
		return
	}
	if g.expired(c.AccessToken) {
		g.logger.Info("stored credential has expired; discarding", "user_id", c.User.ID)
		g.discard(ctx)
		return
	}
	g.reset(&c)
	g.logger.Info("session restored", "user_id", c.User.ID, "role", c.User.Role.String())
}

// discard removes the stored credential so the durable copy matches the
// empty in-memory state.
func (g *Gate) discard(ctx context.Context) {
	if err := g.store.Delete(ctx); err != nil {
		g.logger.Warn("delete stored credential", "error", err)
	}
	g.reset(nil)
}

// Set persists c and makes it current. On a storage error the previous
// state is kept.
func (g *Gate) Set(ctx context.Context, c models.Credential) error {
	if !c.Complete() {
		return ErrIncompleteCredential
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.store.Save(ctx, raw); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	cp := c
	g.cur = &cp
	g.logger.Info("session started", "user_id", c.User.ID, "role", c.User.Role.String())
	return nil
}

// Clear forgets the current credential and deletes the persisted copy.
// Clearing an empty gate is a no-op apart from the storage delete.
func (g *Gate) Clear(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cur = nil
	if err := g.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Current returns a copy of the credential and whether one is present.
func (g *Gate) Current() (models.Credential, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.cur == nil {
		return models.Credential{}, false
	}
	return *g.cur, true
}

// Token returns the bearer token, or "" when logged out.
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.cur == nil {
		return ""
	}
	return g.cur.AccessToken
}

func (g *Gate) reset(c *models.Credential) {
	g.mu.Lock()
	g.cur = c
	g.mu.Unlock()
}

// expired reports whether token is a JWT whose exp lies in the past. Opaque
// tokens never expire client-side; the backend stays the authority.
func (g *Gate) expired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !g.now().Before(claims.ExpiresAt.Time)
}
