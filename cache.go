package lintflow

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/gophersatwork/granular"
	"github.com/spf13/afero"
)

var (
	// ErrEntryNotFound is returned when no cache entry matches the file content
	ErrEntryNotFound = errors.New("entry not found")
	// ErrReadingCacheRecord is returned when a stored record cannot be decoded
	ErrReadingCacheRecord = errors.New("cached record is invalid")
)

// CacheScope pins cached results to one engine, configuration, task and
// project root. Any change to a component produces a different fingerprint,
// which moves the cache to a fresh namespace and invalidates every prior entry.
type CacheScope struct {
	EngineVersion string
	ConfigHash    []byte // canonical serialization of the effective rule config
	TaskName      string
	Root          string
}

// Fingerprint derives the scope key with xxhash, the same hash family the
// underlying store uses for file content.
func (s CacheScope) Fingerprint() string {
	h := xxhash.New()
	h.Write([]byte(s.EngineVersion))
	h.Write([]byte{0})
	h.Write(s.ConfigHash)
	h.Write([]byte{0})
	h.Write([]byte(s.TaskName))
	h.Write([]byte{0})
	h.Write([]byte(NormalizePath(s.Root)))
	return strconv.FormatUint(h.Sum64(), 16)
}

// ResultCache wraps the granular content-addressed store. Per-file keys are
// content fingerprints computed by granular; the scope fingerprint selects
// the cache directory.
type ResultCache struct {
	gCache *granular.Cache
	fs     afero.Fs
}

// NewResultCache opens (or creates) the cache namespace for the given scope.
func NewResultCache(dir string, scope CacheScope, fs afero.Fs) (*ResultCache, error) {
	opts := []granular.Option{}
	if fs != nil {
		opts = append(opts, granular.WithFs(fs))
	}

	scopedDir := JoinPaths(dir, scope.Fingerprint())
	cache, err := granular.New(scopedDir, opts...)
	if err != nil {
		return nil, NewCacheError("failed to open result cache", err)
	}

	return &ResultCache{
		gCache: cache,
		fs:     fs,
	}, nil
}

// Record stores the outcome of analyzing a file. The entry is keyed by the
// file's content fingerprint and holds a minimal MUS-encoded record.
func (c *ResultCache) Record(path string, res *Result) error {
	normalizedPath := NormalizePath(path)

	rec := cacheRecord{
		Path:       normalizedPath,
		Clean:      res.IsEmpty(),
		Violations: res.Count(),
	}

	metadata := map[string]string{
		"record": string(marshalCacheRecord(rec)),
	}

	key := granular.Key{
		Inputs: []granular.Input{granular.FileInput{
			Path: normalizedPath,
			Fs:   c.fs,
		}},
	}

	if err := c.gCache.Store(key, granular.Result{Metadata: metadata}); err != nil {
		return NewCacheError("failed to store cache entry", err)
	}

	return nil
}

// Lookup returns the record for the file's current content, or
// ErrEntryNotFound when this exact content has not been analyzed under the
// current scope.
func (c *ResultCache) Lookup(path string) (cacheRecord, error) {
	normalizedPath := NormalizePath(path)

	key := granular.Key{
		Inputs: []granular.Input{granular.FileInput{
			Path: normalizedPath,
			Fs:   c.fs,
		}},
	}

	result, found, _ := c.gCache.Get(key)
	if !found {
		return cacheRecord{}, ErrEntryNotFound
	}

	encoded, ok := result.Metadata["record"]
	if !ok {
		// Entries without a record predate this format; treat as a miss.
		return cacheRecord{}, ErrEntryNotFound
	}

	rec, err := unmarshalCacheRecord([]byte(encoded))
	if err != nil {
		return cacheRecord{}, fmt.Errorf("%w: %v", ErrReadingCacheRecord, err)
	}

	return rec, nil
}
