// Package ledger owns all entries: it validates, orders and persists them
// in per-category, per-day buckets and notifies observers of each change.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/penguin-meds/internal/logging"
	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/storage"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

// Op names the kind of mutation carried by a Change.
type Op string

const (
	OpAdded   Op = "added"
	OpUpdated Op = "updated"
	OpRemoved Op = "removed"
	OpCleared Op = "cleared"
)

// corruptSuffix marks a bucket moved aside by Load.
const corruptSuffix = ".corrupt"

// Change describes a completed mutation. Previous is set for updates and
// removals; Entry is zero for OpCleared.
type Change struct {
	Op       Op
	Category model.Category
	Entry    model.Entry
	Previous model.Entry
}

// Store is the sole owner and mutator of entries. Memory is the
// authoritative working copy; the backend gives best-effort durability.
type Store struct {
	mu        sync.Mutex
	backend   storage.Backend
	entries   map[model.Category][]model.Entry
	seq       uint64
	loc       *time.Location
	newID     func(time.Time) string
	log       *logging.Logger
	observers []func(Change)
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the zone whose calendar days group entries. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithLogger sets the store's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.log = l.WithComponent(logging.ComponentStore) }
}

// WithIDGenerator replaces timecalc.GenerateID.
func WithIDGenerator(f func(time.Time) string) Option {
	return func(s *Store) { s.newID = f }
}

// New creates an empty store persisting to backend. Call Load to pick up
// previously persisted entries.
func New(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		entries: map[model.Category][]model.Entry{},
		loc:     time.Local,
		newID:   timecalc.GenerateID,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after every completed mutation.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// notify runs observers outside the lock so they may read the store.
func (s *Store) notify(ch Change) {
	s.mu.Lock()
	obs := slices.Clone(s.observers)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(ch)
	}
}

// Add validates and stores a new entry.
func (s *Store) Add(ctx context.Context, cat model.Category, kind model.Kind, amount int, at time.Time) (model.Entry, error) {
	d, err := model.Describe(cat)
	if err != nil {
		return model.Entry{}, err
	}
	if err := d.ValidateKind(kind); err != nil {
		return model.Entry{}, err
	}
	if err := d.ValidateAmount(amount); err != nil {
		return model.Entry{}, err
	}

	s.mu.Lock()
	s.seq++
	at = at.In(s.loc)
	e := model.Entry{
		ID:        s.uniqueID(cat, at),
		Category:  cat,
		Kind:      kind,
		Amount:    amount,
		Timestamp: at,
		Seq:       s.seq,
	}
	s.entries[cat] = append(s.entries[cat], e)
	sortRecent(s.entries[cat])
	perr := s.persistDay(ctx, cat, timecalc.DayKey(at))
	s.mu.Unlock()

	s.log.DebugContext(ctx, "entry added",
		logging.FieldOperation, logging.OpCreate,
		logging.FieldCategory, cat,
		logging.FieldEntryID, e.ID,
		logging.FieldAmountMg, amount)
	s.notify(Change{Op: OpAdded, Category: cat, Entry: e})
	return e, perr
}

// Update applies a partial update to the entry with id. Changed fields are
// validated like Add; a day change moves the entry to its new bucket.
func (s *Store) Update(ctx context.Context, cat model.Category, id string, p model.Patch) (model.Entry, error) {
	d, err := model.Describe(cat)
	if err != nil {
		return model.Entry{}, err
	}

	s.mu.Lock()
	list := s.entries[cat]
	i := indexOf(list, id)
	if i < 0 {
		s.mu.Unlock()
		return model.Entry{}, notFound(id)
	}
	if p.Kind != nil {
		if err := d.ValidateKind(*p.Kind); err != nil {
			s.mu.Unlock()
			return model.Entry{}, err
		}
	}
	if p.Amount != nil {
		if err := d.ValidateAmount(*p.Amount); err != nil {
			s.mu.Unlock()
			return model.Entry{}, err
		}
	}
	prev := list[i]
	if p.IsEmpty() {
		s.mu.Unlock()
		return prev, nil
	}

	next := p.Apply(prev)
	next.Timestamp = next.Timestamp.In(s.loc)
	list[i] = next
	sortRecent(list)

	oldDay, newDay := timecalc.DayKey(prev.Timestamp), timecalc.DayKey(next.Timestamp)
	perr := s.persistDay(ctx, cat, oldDay)
	if newDay != oldDay {
		perr = errors.Join(perr, s.persistDay(ctx, cat, newDay))
	}
	s.mu.Unlock()

	s.log.DebugContext(ctx, "entry updated",
		logging.FieldOperation, logging.OpUpdate,
		logging.FieldCategory, cat,
		logging.FieldEntryID, id)
	s.notify(Change{Op: OpUpdated, Category: cat, Entry: next, Previous: prev})
	return next, perr
}

// Remove deletes the entry with id. Removing an id twice fails with ErrNotFound.
func (s *Store) Remove(ctx context.Context, cat model.Category, id string) error {
	if _, err := model.Describe(cat); err != nil {
		return err
	}

	s.mu.Lock()
	list := s.entries[cat]
	i := indexOf(list, id)
	if i < 0 {
		s.mu.Unlock()
		return notFound(id)
	}
	prev := list[i]
	s.entries[cat] = append(list[:i:i], list[i+1:]...)
	perr := s.persistDay(ctx, cat, timecalc.DayKey(prev.Timestamp))
	s.mu.Unlock()

	s.log.DebugContext(ctx, "entry removed",
		logging.FieldOperation, logging.OpDelete,
		logging.FieldCategory, cat,
		logging.FieldEntryID, id)
	s.notify(Change{Op: OpRemoved, Category: cat, Previous: prev})
	return perr
}

// Get returns the entry with id.
func (s *Store) Get(cat model.Category, id string) (model.Entry, error) {
	if _, err := model.Describe(cat); err != nil {
		return model.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entries[cat]
	if i := indexOf(list, id); i >= 0 {
		return list[i], nil
	}
	return model.Entry{}, notFound(id)
}

// ListRecent returns every entry of cat, newest first. Ties keep insertion order.
func (s *Store) ListRecent(cat model.Category) ([]model.Entry, error) {
	if _, err := model.Describe(cat); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Entry{}, s.entries[cat]...), nil
}

// ListDay returns cat's entries whose day-key is day, newest first.
func (s *Store) ListDay(cat model.Category, day string) ([]model.Entry, error) {
	all, err := s.ListRecent(cat)
	if err != nil {
		return nil, err
	}
	out := []model.Entry{}
	for _, e := range all {
		if timecalc.DayKey(e.Timestamp) == day {
			out = append(out, e)
		}
	}
	return out, nil
}

// ClearAll empties every category and removes every persisted key.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	s.entries = map[model.Category][]model.Entry{}
	var perr error
	if err := s.backend.Clear(ctx); err != nil {
		perr = &PersistenceError{Op: "clear", Key: "*", Err: err}
		s.log.Failure(ctx, "clear failed", err)
	}
	s.mu.Unlock()

	for _, cat := range model.Categories() {
		s.notify(Change{Op: OpCleared, Category: cat})
	}
	return perr
}

// Load replaces memory with the persisted buckets. Buckets are fetched
// concurrently. Entries whose local day no longer matches their bucket
// (for example after a timezone change) are moved to the right bucket.
//
// A bucket that cannot be decoded is moved aside to <key>.corrupt and
// skipped; the rest still load and the returned error matches
// storage.ErrCorrupt. Any other backend failure aborts the load.
func (s *Store) Load(ctx context.Context) error {
	keys, err := s.backend.ListKeys(ctx, storage.EntriesPrefix)
	if err != nil {
		return &PersistenceError{Op: "list", Key: storage.EntriesPrefix, Err: err}
	}
	keys = slices.DeleteFunc(keys, func(k string) bool {
		return strings.HasSuffix(k, corruptSuffix)
	})

	files := make([]model.DayFile, len(keys))
	skipped := make([]error, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, key := range keys {
		g.Go(func() error {
			data, err := s.backend.Get(gctx, key)
			if errors.Is(err, storage.ErrKeyNotFound) {
				return nil
			}
			if errors.Is(err, storage.ErrCorrupt) {
				skipped[i] = &PersistenceError{Op: "get", Key: key, Err: err}
				return nil
			}
			if err != nil {
				return &PersistenceError{Op: "get", Key: key, Err: err}
			}
			if err := json.Unmarshal(data, &files[i]); err != nil {
				files[i] = model.DayFile{}
				skipped[i] = &PersistenceError{Op: "decode", Key: key, Err: fmt.Errorf("%w: %v", storage.ErrCorrupt, err)}
				s.quarantine(gctx, key, data)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var loadErr error
	for i, err := range skipped {
		if err != nil {
			s.log.Failure(ctx, "skipping unreadable bucket", err, logging.FieldKey, keys[i])
			loadErr = errors.Join(loadErr, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := map[model.Category][]model.Entry{}
	seen := map[model.Category]map[string]bool{}
	dirty := map[model.Category]map[string]bool{}
	var maxSeq uint64

	for i, key := range keys {
		if skipped[i] != nil {
			continue
		}
		cat, day, err := storage.ParseEntryKey(key)
		if err != nil {
			s.log.Warn("skipping unrecognised key", logging.FieldKey, key, logging.FieldError, err)
			continue
		}
		if _, err := model.Describe(cat); err != nil {
			s.log.Warn("skipping unknown category", logging.FieldKey, key)
			continue
		}
		if seen[cat] == nil {
			seen[cat] = map[string]bool{}
			dirty[cat] = map[string]bool{}
		}
		for _, e := range files[i].Entries {
			if seen[cat][e.ID] {
				s.log.Warn("dropping duplicate entry id", logging.FieldKey, key, logging.FieldEntryID, e.ID)
				dirty[cat][day] = true
				continue
			}
			seen[cat][e.ID] = true
			e.Category = cat
			e.Timestamp = e.Timestamp.In(s.loc)
			if d := timecalc.DayKey(e.Timestamp); d != day {
				dirty[cat][day] = true
				dirty[cat][d] = true
			}
			if e.Seq > maxSeq {
				maxSeq = e.Seq
			}
			entries[cat] = append(entries[cat], e)
		}
	}
	// Entries written without a sequence are numbered after the rest, in bucket order.
	for cat := range entries {
		for j := range entries[cat] {
			if entries[cat][j].Seq == 0 {
				maxSeq++
				entries[cat][j].Seq = maxSeq
			}
		}
		sortRecent(entries[cat])
	}

	s.entries = entries
	s.seq = maxSeq

	var perr error
	for cat, days := range dirty {
		for day := range days {
			perr = errors.Join(perr, s.persistDay(ctx, cat, day))
		}
	}
	s.log.Info("store loaded", logging.FieldOperation, logging.OpLoad, logging.FieldCount, len(keys))
	return errors.Join(loadErr, perr)
}

// quarantine moves an undecodable bucket to <key>.corrupt so later writes
// to the same day do not overwrite it. Failures are only logged.
func (s *Store) quarantine(ctx context.Context, key string, data []byte) {
	if err := s.backend.Set(ctx, key+corruptSuffix, data); err != nil {
		s.log.Failure(ctx, "quarantine failed", err, logging.FieldKey, key)
		return
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		s.log.Failure(ctx, "quarantine failed", err, logging.FieldKey, key)
	}
}

// persistDay rewrites the bucket for (cat, day) from memory, deleting it
// when no entries remain. Callers hold s.mu.
func (s *Store) persistDay(ctx context.Context, cat model.Category, day string) error {
	key := storage.EntryKey(cat, day)

	var bucket []model.Entry
	for _, e := range s.entries[cat] {
		if timecalc.DayKey(e.Timestamp) == day {
			bucket = append(bucket, e)
		}
	}
	if len(bucket) == 0 {
		if err := s.backend.Delete(ctx, key); err != nil {
			s.log.Failure(ctx, "delete bucket failed", err, logging.FieldKey, key)
			return &PersistenceError{Op: "delete", Key: key, Err: err}
		}
		return nil
	}

	sort.Slice(bucket, func(i, j int) bool { return bucket[i].Seq < bucket[j].Seq })
	data, err := json.MarshalIndent(model.DayFile{Date: day, Category: cat, Entries: bucket}, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Key: key, Err: err}
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		s.log.Failure(ctx, "write bucket failed", err, logging.FieldKey, key)
		return &PersistenceError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// uniqueID draws ids until one is unused in cat. Callers hold s.mu.
func (s *Store) uniqueID(cat model.Category, at time.Time) string {
	for {
		id := s.newID(at)
		if indexOf(s.entries[cat], id) < 0 {
			return id
		}
	}
}

func indexOf(list []model.Entry, id string) int {
	for i, e := range list {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// sortRecent orders newest first; equal timestamps keep insertion order.
func sortRecent(list []model.Entry) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.Seq < b.Seq
	})
}
