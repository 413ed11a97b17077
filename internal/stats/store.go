// Package stats keeps the bot's usage counters: total links shortened,
// links per user and links per target domain.
//
// A Store owns the in-memory document for the life of the process. Every
// mutation is followed by a synchronous save of the whole document through
// a Persister, and both happen under one lock so concurrent commands never
// lose an increment or interleave their writes.
package stats

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/sundayezeilo/yourlsbot/internal/errx"
)

// DomainCount is one row of the top-domains listing.
type DomainCount struct {
	Domain string
	Count  int64
}

// Store serializes all reads and writes of the statistics document.
type Store struct {
	mu        sync.Mutex
	doc       Document
	persister Persister
	logger    *slog.Logger
}

// StoreConfig holds configuration for the store.
type StoreConfig struct {
	Persister Persister
	Logger    *slog.Logger
}

// Open loads the persisted document. A document that was never saved
// yields zero counts; fields missing from a saved document default to
// zero or empty.
func Open(ctx context.Context, cfg StoreConfig) (*Store, error) {
	const op = "stats.Open"

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := cfg.Persister.Load(ctx)
	switch {
	case err == nil:
	case errx.Is(err, errx.NotFound):
		logger.InfoContext(ctx, "no saved statistics, starting from zero")
		doc = Document{}
	default:
		return nil, errx.E(op, errx.KindOf(err), err)
	}

	if !doc.Consistent() {
		logger.WarnContext(ctx, "statistics total does not match per-user sum",
			"total_links", doc.TotalLinks,
			"user_sum", doc.UserStats.Sum(),
		)
	}

	return &Store{
		doc:       doc,
		persister: cfg.Persister,
		logger:    logger,
	}, nil
}

// RecordEvent counts one shortened link for userID and domain, then saves
// the document. The in-memory counts stay incremented when the save fails;
// the returned error has kind errx.Persistence in that case.
func (s *Store) RecordEvent(ctx context.Context, userID, domain string) error {
	const op = "stats.Store.RecordEvent"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.TotalLinks++
	s.doc.UserStats.Inc(userID)
	s.doc.DomainStats.Inc(domain)

	if err := s.persister.Save(ctx, s.doc); err != nil {
		return errx.E(op, errx.Persistence, err)
	}
	return nil
}

// TotalLinks returns the number of links shortened so far.
func (s *Store) TotalLinks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.TotalLinks
}

// UserCount returns how many links userID has shortened.
func (s *Store) UserCount(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.UserStats.Get(userID)
}

// Counts returns the total and userID's count from the same state, so the
// user's count never exceeds the total.
func (s *Store) Counts(userID string) (total, user int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.TotalLinks, s.doc.UserStats.Get(userID)
}

// TopDomains returns at most n domains ordered by count, highest first.
// Domains with equal counts keep the order in which they were first seen.
func (s *Store) TopDomains(n int) []DomainCount {
	if n <= 0 {
		return nil
	}

	s.mu.Lock()
	entries := s.doc.DomainStats.Entries()
	s.mu.Unlock()

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(entries) > n {
		entries = entries[:n]
	}

	out := make([]DomainCount, len(entries))
	for i, e := range entries {
		out[i] = DomainCount{Domain: e.Key, Count: e.Count}
	}
	return out
}

// Snapshot returns a copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}
