package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/anshulsoni4/whisper-well/domain"
)

// journalKey is the fixed key the entry collection is stored under.
const journalKey = "whisper-well-journal-entries"

// PersistenceError reports a durable-store read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("journal store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// EntryStore persists journal entries as a single most-recent-first list in the
// key-value store. Writers are serialized within the process; the underlying
// read-modify-write is not transactional across processes.
type EntryStore struct {
	kv  KV
	mu  sync.Mutex
	now func() time.Time
}

// NewEntryStore creates an entry store on top of the given key-value store.
func NewEntryStore(kv KV) *EntryStore {
	return &EntryStore{kv: kv, now: time.Now}
}

// Append validates and persists a new entry at the head of the list, assigning
// the creation time when absent. The stored entry is returned.
func (s *EntryStore) Append(ctx context.Context, entry domain.JournalEntry) (domain.JournalEntry, error) {
	if entry.Content == "" {
		return domain.JournalEntry{}, fmt.Errorf("entry content must not be empty")
	}
	if entry.Date.IsZero() {
		entry.Date = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		// A corrupt or unreadable store must not make the journal
		// permanently unwritable; fall back to an empty list.
		log.Printf("WARN: falling back to empty journal on read failure: %v", err)
		entries = nil
	}

	entries = append([]domain.JournalEntry{entry}, entries...)

	payload, err := json.Marshal(entries)
	if err != nil {
		return domain.JournalEntry{}, &PersistenceError{Op: "write", Err: err}
	}
	if err := s.kv.Set(ctx, journalKey, string(payload)); err != nil {
		return domain.JournalEntry{}, &PersistenceError{Op: "write", Err: err}
	}

	return entry, nil
}

// List returns all entries, most recent first. Read or deserialization
// failures degrade to an empty list and are logged, never returned.
func (s *EntryStore) List(ctx context.Context) []domain.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		log.Printf("ERROR: failed to read journal entries: %v", err)
		return nil
	}
	return entries
}

// load reads and deserializes the full collection. Callers hold s.mu.
func (s *EntryStore) load(ctx context.Context) ([]domain.JournalEntry, error) {
	value, ok, err := s.kv.Get(ctx, journalKey)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Err: err}
	}
	if !ok {
		return nil, nil
	}

	var entries []domain.JournalEntry
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		// A corrupt payload is not recoverable; treat the journal as empty.
		log.Printf("WARN: corrupt journal payload, treating as empty: %v", err)
		return nil, nil
	}
	return entries, nil
}

// ListByDateRange returns entries whose date falls within [start, end].
func (s *EntryStore) ListByDateRange(ctx context.Context, start, end time.Time) []domain.JournalEntry {
	var filtered []domain.JournalEntry
	for _, entry := range s.List(ctx) {
		if !entry.Date.Before(start) && !entry.Date.After(end) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// ListToday returns entries from [start of the current local day, start of the
// next local day).
func (s *EntryStore) ListToday(ctx context.Context) []domain.JournalEntry {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	var filtered []domain.JournalEntry
	for _, entry := range s.List(ctx) {
		if !entry.Date.Before(start) && entry.Date.Before(end) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// ListPastWeek returns entries from the past seven days.
func (s *EntryStore) ListPastWeek(ctx context.Context) []domain.JournalEntry {
	now := s.now()
	return s.ListByDateRange(ctx, now.AddDate(0, 0, -7), now)
}

// ListOnThisDay returns entries from the same local day and month in strictly
// earlier years, for anniversary recall.
func (s *EntryStore) ListOnThisDay(ctx context.Context) []domain.JournalEntry {
	now := s.now()

	var filtered []domain.JournalEntry
	for _, entry := range s.List(ctx) {
		d := entry.Date.In(now.Location())
		if d.Day() == now.Day() && d.Month() == now.Month() && d.Year() < now.Year() {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// Clear wipes the whole collection. This is the only deletion path; there is
// no per-entry delete.
func (s *EntryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, journalKey, "[]"); err != nil {
		return &PersistenceError{Op: "write", Err: err}
	}
	return nil
}
