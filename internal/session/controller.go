// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package session owns the Locked/Unlocked state machine. It checks the
// master passphrase, holds the derived key while unlocked and forwards vault
// operations with that key.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/toeirei/passmaster/internal/auth"
	"github.com/toeirei/passmaster/internal/clock"
	"github.com/toeirei/passmaster/internal/kdf"
	"github.com/toeirei/passmaster/internal/logging"
	"github.com/toeirei/passmaster/internal/model"
	"github.com/toeirei/passmaster/internal/security"
	"github.com/toeirei/passmaster/internal/state"
	"github.com/toeirei/passmaster/internal/vault"
)

var (
	// ErrNotInitialized is returned by Unlock before any verifier exists.
	ErrNotInitialized = errors.New("session: vault is not initialized")
	// ErrAlreadyInitialized is returned by Setup when a verifier exists.
	ErrAlreadyInitialized = errors.New("session: vault is already initialized")
	// ErrInvalidPassphrase is returned when the passphrase does not match.
	ErrInvalidPassphrase = errors.New("session: invalid passphrase")
	// ErrCooldown is returned while unlock attempts are suspended.
	ErrCooldown = errors.New("session: too many failed attempts")
)

// CooldownError carries the time left before the next unlock attempt.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrCooldown, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

// State is the session state.
type State int

const (
	Locked State = iota
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// Audit actions.
const (
	ActionSetup            = "VAULT_SETUP"
	ActionUnlock           = "UNLOCK"
	ActionUnlockFailed     = "UNLOCK_FAILED"
	ActionLock             = "LOCK"
	ActionAdd              = "ADD_CREDENTIAL"
	ActionView             = "VIEW_CREDENTIAL"
	ActionUpdate           = "UPDATE_CREDENTIAL"
	ActionDelete           = "DELETE_CREDENTIAL"
	ActionChangePassphrase = "CHANGE_PASSPHRASE"
	ActionRestore          = "RESTORE"
	ActionIntegrityFailure = "INTEGRITY_FAILURE"
)

// AuditWriter receives audit events. Details never contain secrets.
type AuditWriter interface {
	LogAction(ctx context.Context, action, details string) error
}

// VerifierStore persists a newly created verifier.
type VerifierStore interface {
	SaveVerifier(ctx context.Context, v *model.Verifier) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithKDFParams sets the parameters used for new verifiers.
func WithKDFParams(p kdf.Params) Option { return func(c *Controller) { c.params = p } }

// WithPolicy sets the failed-attempt backoff policy.
func WithPolicy(p Policy) Option { return func(c *Controller) { c.policy = p } }

// WithClock sets the clock used for cooldowns.
func WithClock(cl clock.Clock) Option { return func(c *Controller) { c.clock = cl } }

// WithAuditWriter sets the audit sink.
func WithAuditWriter(w AuditWriter) Option { return func(c *Controller) { c.audit = w } }

// WithVerifierStore sets where Setup persists the verifier.
func WithVerifierStore(vs VerifierStore) Option { return func(c *Controller) { c.verifiers = vs } }

// Controller is the session over one vault. It is safe for concurrent use.
type Controller struct {
	mu        sync.Mutex
	store     *vault.Store
	verifier  *model.Verifier
	key       state.KeyCache
	failures  int
	cooldown  time.Time
	params    kdf.Params
	policy    Policy
	clock     clock.Clock
	audit     AuditWriter
	verifiers VerifierStore
}

// New returns a locked controller over store. verifier is nil for a vault
// that has not been set up yet.
func New(store *vault.Store, verifier *model.Verifier, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		verifier: verifier.Clone(),
		params:   kdf.DefaultParams(),
		policy:   DefaultPolicy(),
		clock:    clock.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Initialized reports whether a verifier exists.
func (c *Controller) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verifier != nil
}

// State returns the current state.
func (c *Controller) State() State {
	if c.key.Present() {
		return Unlocked
	}
	return Locked
}

// Verifier returns a copy of the current verifier, or nil.
func (c *Controller) Verifier() *model.Verifier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verifier.Clone()
}

// Setup creates the verifier for a new vault, persists it and unlocks.
func (c *Controller) Setup(ctx context.Context, passphrase []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.verifier != nil {
		return ErrAlreadyInitialized
	}
	v, key, err := auth.Enroll(passphrase, c.params)
	if err != nil {
		return err
	}
	defer key.Zero()

	if c.verifiers != nil {
		if err := c.verifiers.SaveVerifier(ctx, v); err != nil {
			return fmt.Errorf("session: persist verifier: %w", err)
		}
	}
	c.verifier = v
	c.key.Set(key)
	c.failures = 0
	c.record(ctx, ActionSetup, fmt.Sprintf("kdf=%s", v.KDF.Algorithm))
	logging.Debugf("vault initialized with %s", v.KDF.Algorithm)
	return nil
}

// Unlock checks passphrase and, on success, holds the derived key until Lock.
// While a cooldown is active it fails with *CooldownError without deriving.
func (c *Controller) Unlock(ctx context.Context, passphrase []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.verifier == nil {
		return ErrNotInitialized
	}
	if now := c.clock.Now(); now.Before(c.cooldown) {
		return &CooldownError{Remaining: c.cooldown.Sub(now)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key, ok, err := auth.Authenticate(passphrase, c.verifier)
	if err != nil {
		return err
	}
	if !ok {
		c.fail(ctx)
		return ErrInvalidPassphrase
	}
	defer key.Zero()

	c.key.Set(key)
	c.failures = 0
	c.cooldown = time.Time{}
	c.record(ctx, ActionUnlock, "")
	return nil
}

// fail registers a failed attempt and arms the cooldown. Callers hold mu.
func (c *Controller) fail(ctx context.Context) {
	c.failures++
	if d := c.policy.Delay(c.failures); d > 0 {
		c.cooldown = c.clock.Now().Add(d)
		logging.Warnf("%d consecutive failed unlock attempts, cooling down for %s", c.failures, d)
	}
	c.record(ctx, ActionUnlockFailed, fmt.Sprintf("consecutive=%d", c.failures))
}

// Failures returns the number of consecutive failed attempts.
func (c *Controller) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// Cooldown returns how long unlock attempts remain suspended, or zero.
func (c *Controller) Cooldown() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.cooldown.Sub(c.clock.Now()); d > 0 {
		return d
	}
	return 0
}

// Lock wipes the session key. Locking a locked session is a no-op.
// Forwarded vault operations in flight finish first.
func (c *Controller) Lock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lock()
}

// lock wipes the key. Callers hold mu.
func (c *Controller) lock() {
	if !c.key.Present() {
		return
	}
	c.key.Clear()
	c.record(context.Background(), ActionLock, "")
}

// Close locks the session.
func (c *Controller) Close() error {
	c.Lock()
	return nil
}

// ChangePassphrase replaces the master passphrase. Every record is resealed
// under the new key, and records plus the new verifier are committed together.
func (c *Controller) ChangePassphrase(ctx context.Context, current, next []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.verifier == nil {
		return ErrNotInitialized
	}
	if !c.key.Present() {
		return vault.ErrNotAuthenticated
	}
	if now := c.clock.Now(); now.Before(c.cooldown) {
		return &CooldownError{Remaining: c.cooldown.Sub(now)}
	}
	oldKey, ok, err := auth.Authenticate(current, c.verifier)
	if err != nil {
		return err
	}
	if !ok {
		c.fail(ctx)
		return ErrInvalidPassphrase
	}
	defer oldKey.Zero()

	v, newKey, err := auth.Enroll(next, c.params)
	if err != nil {
		return err
	}
	defer newKey.Zero()

	if err := c.store.Rekey(ctx, oldKey, newKey, v); err != nil {
		return err
	}
	c.verifier = v
	c.key.Set(newKey)
	c.failures = 0
	c.record(ctx, ActionChangePassphrase, fmt.Sprintf("records=%d", c.store.Len()))
	return nil
}

// Restore replaces the verifier and every record with snap. An initialized
// vault must be unlocked first. The session is locked afterwards since the
// key no longer matches the restored verifier. Records are committed as
// given; the caller checks them against the snapshot's own passphrase.
func (c *Controller) Restore(ctx context.Context, snap model.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.verifier != nil && !c.key.Present() {
		return vault.ErrNotAuthenticated
	}
	if snap.Verifier == nil {
		return auth.ErrMalformedVerifier
	}
	if err := c.store.Replace(ctx, snap); err != nil {
		return err
	}
	c.verifier = snap.Verifier.Clone()
	c.failures = 0
	c.cooldown = time.Time{}
	c.record(ctx, ActionRestore, fmt.Sprintf("records=%d", len(snap.Records)))
	c.lock()
	return nil
}

// withKey runs fn with the session key and fails with
// vault.ErrNotAuthenticated while locked. Lock waits for fn to return.
func (c *Controller) withKey(fn func(key security.Secret) error) error {
	var err error
	if !c.key.With(func(key security.Secret) { err = fn(key) }) {
		return vault.ErrNotAuthenticated
	}
	return err
}

// Add stores a new credential.
func (c *Controller) Add(ctx context.Context, e vault.Entry, allowWeak bool) error {
	return c.withKey(func(key security.Secret) error {
		if err := c.store.Add(ctx, key, e, allowWeak); err != nil {
			return err
		}
		c.record(ctx, ActionAdd, "service="+e.Service)
		return nil
	})
}

// Get opens a credential. The caller must Wipe the returned record.
func (c *Controller) Get(ctx context.Context, service string) (vault.Record, error) {
	var rec vault.Record
	err := c.withKey(func(key security.Secret) error {
		r, err := c.store.Get(ctx, key, service)
		if errors.Is(err, vault.ErrIntegrity) {
			logging.Errorf("integrity check failed for service %q", service)
			c.record(ctx, ActionIntegrityFailure, "service="+service)
		}
		if err != nil {
			return err
		}
		rec = r
		c.record(ctx, ActionView, "service="+service)
		return nil
	})
	return rec, err
}

// Update changes an existing credential.
func (c *Controller) Update(ctx context.Context, service string, ch vault.Changes, allowWeak bool) error {
	return c.withKey(func(key security.Secret) error {
		err := c.store.Update(ctx, key, service, ch, allowWeak)
		if errors.Is(err, vault.ErrIntegrity) {
			logging.Errorf("integrity check failed for service %q", service)
			c.record(ctx, ActionIntegrityFailure, "service="+service)
		}
		if err != nil {
			return err
		}
		c.record(ctx, ActionUpdate, "service="+service)
		return nil
	})
}

// Delete removes a credential.
func (c *Controller) Delete(ctx context.Context, service string) error {
	return c.withKey(func(key security.Secret) error {
		if err := c.store.Delete(ctx, key, service); err != nil {
			return err
		}
		c.record(ctx, ActionDelete, "service="+service)
		return nil
	})
}

// List returns the sorted service names.
func (c *Controller) List() ([]string, error) {
	var out []string
	err := c.withKey(func(key security.Secret) (err error) {
		out, err = c.store.List(key)
		return err
	})
	return out, err
}

// Search returns the sorted service names containing query, ignoring case.
func (c *Controller) Search(query string) ([]string, error) {
	var out []string
	err := c.withKey(func(key security.Secret) (err error) {
		out, err = c.store.Search(key, query)
		return err
	})
	return out, err
}

func (c *Controller) record(ctx context.Context, action, details string) {
	if c.audit == nil {
		return
	}
	if err := c.audit.LogAction(ctx, action, details); err != nil {
		logging.Warnf("failed to write audit entry %s: %v", action, err)
	}
}
