package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// queryMemoEntry stores one generated query with the day it was generated on.
type queryMemoEntry struct {
	Day   string `json:"day"`
	Query string `json:"query"`
}

// QueryMemo memoizes generated search queries per source for the current day.
// Regenerating a query mid-day would fragment the day's social results, so the
// memo is keyed by calendar date rather than a TTL.
type QueryMemo struct {
	dir string
	now func() time.Time
}

// NewQueryMemo creates a memo rooted at dir.
func NewQueryMemo(dir string) *QueryMemo {
	return &QueryMemo{dir: dir, now: time.Now}
}

// WithClock overrides the memo's clock for tests.
func (m *QueryMemo) WithClock(now func() time.Time) *QueryMemo {
	m.now = now
	return m
}

// Get returns the memoized query for sourceKey if one was stored today.
func (m *QueryMemo) Get(sourceKey string) (string, bool) {
	data, err := os.ReadFile(m.path(sourceKey))
	if err != nil {
		return "", false
	}
	var entry queryMemoEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", false
	}
	if entry.Day != m.day() || entry.Query == "" {
		return "", false
	}
	return entry.Query, true
}

// Put stores query for sourceKey under today's date.
func (m *QueryMemo) Put(sourceKey, query string) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create memo directory: %w", err)
	}
	data, err := json.Marshal(queryMemoEntry{Day: m.day(), Query: query})
	if err != nil {
		return fmt.Errorf("failed to marshal query memo for %q: %w", sourceKey, err)
	}
	if err := os.WriteFile(m.path(sourceKey), data, 0o644); err != nil {
		return fmt.Errorf("failed to write query memo for %q: %w", sourceKey, err)
	}
	return nil
}

func (m *QueryMemo) day() string {
	return m.now().UTC().Format("2006-01-02")
}

func (m *QueryMemo) path(sourceKey string) string {
	return filepath.Join(m.dir, "query_memo_"+sanitizeKey(sourceKey)+".json")
}
