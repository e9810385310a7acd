// Package cache implements the checksum-validated, TTL-bounded on-disk cache
// shared by all source fetchers. Every failure mode on the read path (missing
// files, unreadable metadata, checksum mismatch, expiry) is treated as a miss,
// never as an error: stale or corrupt data must not be trusted, and a partial
// write by a concurrent run must not break a reader.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Metadata is the sidecar written next to each cached payload.
type Metadata struct {
	Source    string    `json:"source"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Cache is a per-source-key payload cache backed by two files per entry: the
// raw payload and a JSON metadata sidecar. Writes across the two files are not
// atomic; the read path compensates by validating the checksum and treating
// any inconsistency as a miss.
type Cache struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// New creates a cache rooted at dir. A nil logger is replaced with a no-op.
func New(dir string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		dir:    dir,
		logger: logger.Named("cache"),
		now:    time.Now,
	}
}

// WithClock overrides the cache's clock. Tests use this to simulate expiry.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the cached payload for sourceKey, or ok=false on a miss. It
// never returns an error: a cache problem is indistinguishable from an empty
// cache as far as callers are concerned.
func (c *Cache) Get(sourceKey string) ([]byte, bool) {
	meta, err := c.readMetadata(sourceKey)
	if err != nil {
		return nil, false
	}

	if !c.now().Before(meta.ExpiresAt) {
		c.logger.Debug("Cache entry expired",
			zap.String("source", sourceKey),
			zap.Time("expires_at", meta.ExpiresAt))
		return nil, false
	}

	payload, err := os.ReadFile(c.payloadPath(sourceKey))
	if err != nil {
		return nil, false
	}

	if checksum(payload) != meta.Checksum {
		c.logger.Warn("Cache checksum mismatch, treating as miss",
			zap.String("source", sourceKey))
		return nil, false
	}

	return payload, true
}

// Put writes the payload and its metadata sidecar for sourceKey.
func (c *Cache) Put(sourceKey string, payload []byte, ttl time.Duration) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if err := os.WriteFile(c.payloadPath(sourceKey), payload, 0o644); err != nil {
		return fmt.Errorf("failed to write cache payload for %q: %w", sourceKey, err)
	}

	now := c.now()
	meta := Metadata{
		Source:    sourceKey,
		Checksum:  checksum(payload),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal cache metadata for %q: %w", sourceKey, err)
	}
	if err := os.WriteFile(c.metadataPath(sourceKey), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache metadata for %q: %w", sourceKey, err)
	}
	return nil
}

func (c *Cache) readMetadata(sourceKey string) (*Metadata, error) {
	data, err := os.ReadFile(c.metadataPath(sourceKey))
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		c.logger.Warn("Cache metadata corrupted, it will be ignored",
			zap.String("source", sourceKey), zap.Error(err))
		return nil, err
	}
	return &meta, nil
}

func (c *Cache) payloadPath(sourceKey string) string {
	return filepath.Join(c.dir, sanitizeKey(sourceKey)+".payload.json")
}

func (c *Cache) metadataPath(sourceKey string) string {
	return filepath.Join(c.dir, sanitizeKey(sourceKey)+".meta.json")
}

func sanitizeKey(key string) string {
	replacer := strings.NewReplacer(".", "_", "/", "_", ":", "_")
	return replacer.Replace(key)
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
