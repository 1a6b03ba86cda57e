// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package vault keeps credential records sealed in memory and opens them only
// for a caller presenting the session key.
//
// Every record is encrypted with XChaCha20-Poly1305 under a fresh nonce. The
// service name and timestamps stay in the clear for listing but are bound to
// the ciphertext, so a record cannot be moved or re-dated without detection.
package vault

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/toeirei/passmaster/internal/clock"
	"github.com/toeirei/passmaster/internal/model"
	"github.com/toeirei/passmaster/internal/security"
	"golang.org/x/text/cases"
)

// Journal persists mutations before they become visible in memory. A failed
// commit aborts the mutation.
type Journal interface {
	CommitRecord(ctx context.Context, rec model.SealedRecord) error
	DeleteRecord(ctx context.Context, service string) error
	// CommitAll atomically replaces the persisted vault with snap.
	CommitAll(ctx context.Context, snap model.Snapshot) error
}

// Entry is a new credential to add.
type Entry struct {
	Service  string
	Username string
	Secret   security.Secret
}

// Changes describes an update. A nil Username or empty Secret keeps the
// current value.
type Changes struct {
	Username *string
	Secret   security.Secret
}

func (c Changes) empty() bool { return c.Username == nil && c.Secret.Empty() }

// Record is an opened credential. The caller should Wipe it when done.
type Record struct {
	Service   string
	Username  string
	Secret    security.Secret
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Wipe zeroes the plaintext secret.
func (r *Record) Wipe() { r.Secret.Zero() }

// Option configures a Store.
type Option func(*Store)

// WithJournal sets the journal that receives every mutation.
func WithJournal(j Journal) Option { return func(s *Store) { s.journal = j } }

// WithClock sets the clock used for record timestamps.
func WithClock(c clock.Clock) Option { return func(s *Store) { s.clock = c } }

// Store is the in-memory set of sealed records. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[string]model.SealedRecord
	journal Journal
	clock   clock.Clock
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{records: make(map[string]model.SealedRecord)}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) now() time.Time {
	c := s.clock
	if c == nil {
		c = clock.Default()
	}
	// Storage engines keep microseconds; the timestamps are authenticated
	// and must survive a round trip exactly.
	return c.Now().UTC().Truncate(time.Microsecond)
}

func requireKey(key security.Secret) error {
	if key.Empty() {
		return ErrNotAuthenticated
	}
	return nil
}

func (s *Store) commit(ctx context.Context, rec model.SealedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.journal == nil {
		return nil
	}
	if err := s.journal.CommitRecord(ctx, rec); err != nil {
		return fmt.Errorf("vault: journal commit for %q: %w", rec.Service, err)
	}
	return nil
}

// Add seals and inserts a new credential. A weak secret is refused with a
// *WeakSecretError unless allowWeak is set.
func (s *Store) Add(ctx context.Context, key security.Secret, e Entry, allowWeak bool) error {
	if err := requireKey(key); err != nil {
		return err
	}
	if strings.TrimSpace(e.Service) == "" {
		return ErrInvalidService
	}
	if !allowWeak {
		if err := checkStrength(e.Secret); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[e.Service]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateService, e.Service)
	}
	ts := s.now()
	rec, err := seal(key, e.Service, e.Username, e.Secret, ts, ts)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, rec); err != nil {
		return err
	}
	s.records[e.Service] = rec
	return nil
}

// Get opens the named credential. The returned record holds plaintext and
// must be wiped by the caller.
func (s *Store) Get(ctx context.Context, key security.Secret, service string) (Record, error) {
	if err := requireKey(key); err != nil {
		return Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	rec, ok := s.records[service]
	// Update and Delete wipe the buffers they replace.
	rec = rec.Clone()
	s.mu.RUnlock()
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, service)
	}
	defer wipeSealed(rec)
	r, err := open(key, rec)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s", err, service)
	}
	return r, nil
}

// Update applies changes to an existing credential and reseals it with a
// fresh nonce. A change set with neither field is a no-op.
func (s *Store) Update(ctx context.Context, key security.Secret, service string, c Changes, allowWeak bool) error {
	if err := requireKey(key); err != nil {
		return err
	}
	if !c.Secret.Empty() && !allowWeak {
		if err := checkStrength(c.Secret); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[service]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, service)
	}
	if c.empty() {
		return nil
	}
	r, err := open(key, cur)
	if err != nil {
		return fmt.Errorf("%w: %s", err, service)
	}
	defer r.Wipe()

	username := r.Username
	if c.Username != nil {
		username = *c.Username
	}
	secret := r.Secret
	if !c.Secret.Empty() {
		secret = c.Secret
	}

	updated := s.now()
	if !updated.After(cur.CreatedAt) {
		updated = cur.CreatedAt
	}
	rec, err := seal(key, service, username, secret, cur.CreatedAt, updated)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, rec); err != nil {
		return err
	}
	s.records[service] = rec
	wipeSealed(cur)
	return nil
}

// Delete removes the named credential and zeroes its sealed buffers.
func (s *Store) Delete(ctx context.Context, key security.Secret, service string) error {
	if err := requireKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[service]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, service)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.journal != nil {
		if err := s.journal.DeleteRecord(ctx, service); err != nil {
			return fmt.Errorf("vault: journal delete for %q: %w", service, err)
		}
	}
	delete(s.records, service)
	wipeSealed(cur)
	return nil
}

// List returns every service name in lexicographic order. Nothing is decrypted.
func (s *Store) List(key security.Secret) ([]string, error) {
	if err := requireKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedServices(func(string) bool { return true }), nil
}

// Search returns the service names containing query, ignoring case, in
// lexicographic order. Only names are matched. An empty query matches all.
func (s *Store) Search(key security.Secret, query string) ([]string, error) {
	if err := requireKey(key); err != nil {
		return nil, err
	}
	// Caser is stateful and not safe for concurrent use.
	fold := cases.Fold()
	q := fold.String(query)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedServices(func(name string) bool {
		return strings.Contains(fold.String(name), q)
	}), nil
}

func (s *Store) sortedServices(match func(string) bool) []string {
	out := make([]string, 0, len(s.records))
	for name := range s.records {
		if match(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Rekey reseals every record under newKey and commits the result, together
// with verifier, through the journal in one step. On any failure the store
// keeps its previous records.
func (s *Store) Rekey(ctx context.Context, oldKey, newKey security.Secret, verifier *model.Verifier) error {
	if err := requireKey(oldKey); err != nil {
		return err
	}
	if err := requireKey(newKey); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]model.SealedRecord, len(s.records))
	committed := false
	defer func() {
		if !committed {
			for _, rec := range next {
				wipeSealed(rec)
			}
		}
	}()
	for name, cur := range s.records {
		r, err := open(oldKey, cur)
		if err != nil {
			return fmt.Errorf("%w: %s", err, name)
		}
		rec, err := seal(newKey, name, r.Username, r.Secret, cur.CreatedAt, cur.UpdatedAt)
		r.Wipe()
		if err != nil {
			return err
		}
		next[name] = rec
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.journal != nil {
		snap := model.Snapshot{Version: model.SnapshotVersion, Verifier: verifier, Records: sortedRecords(next)}
		if err := s.journal.CommitAll(ctx, snap); err != nil {
			return fmt.Errorf("vault: journal rekey: %w", err)
		}
	}
	committed = true
	for _, old := range s.records {
		wipeSealed(old)
	}
	s.records = next
	return nil
}

// Replace swaps the whole store for snap's records and commits snap, verifier
// included, through the journal in one step. Records are not opened, so the
// caller is responsible for having checked them. On failure the store keeps
// its previous records.
func (s *Store) Replace(ctx context.Context, snap model.Snapshot) error {
	next, err := index(snap.Records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.journal != nil {
		if err := s.journal.CommitAll(ctx, snap); err != nil {
			for _, rec := range next {
				wipeSealed(rec)
			}
			return fmt.Errorf("vault: journal replace: %w", err)
		}
	}
	for _, old := range s.records {
		wipeSealed(old)
	}
	s.records = next
	return nil
}

// Snapshot returns copies of every sealed record sorted by service.
func (s *Store) Snapshot() []model.SealedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedRecords(s.records)
}

// Load replaces the in-memory records with recs without journalling. It is
// used to seed the store from storage.
func (s *Store) Load(recs []model.SealedRecord) error {
	next, err := index(recs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.records {
		wipeSealed(old)
	}
	s.records = next
	return nil
}

// index copies recs into a map keyed by service, rejecting blank and
// duplicate names.
func index(recs []model.SealedRecord) (map[string]model.SealedRecord, error) {
	next := make(map[string]model.SealedRecord, len(recs))
	for _, r := range recs {
		if strings.TrimSpace(r.Service) == "" {
			return nil, ErrInvalidService
		}
		if _, dup := next[r.Service]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateService, r.Service)
		}
		next[r.Service] = r.Clone()
	}
	return next, nil
}

func sortedRecords(m map[string]model.SealedRecord) []model.SealedRecord {
	out := make([]model.SealedRecord, 0, len(m))
	for _, r := range m {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}

func wipeSealed(r model.SealedRecord) {
	security.Wipe(r.Nonce)
	security.Wipe(r.Ciphertext)
}
