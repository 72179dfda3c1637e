package threshold

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"perpbot/internal/model"
)

const reloadInterval = 10 * time.Minute

// RegenFunc is invoked (in its own goroutine) when a set is missing or
// stale, to request out-of-process regeneration. The engine never waits on
// it.
type RegenFunc func(symbol string, regime model.Regime)

// Store is a file-backed threshold store. The file maps "SYMBOL_regime"
// keys to Sets and is backed up before every overwrite.
type Store struct {
	mu         sync.Mutex
	path       string
	cache      map[string]Set
	lastLoaded time.Time
	regen      RegenFunc
	requested  map[string]time.Time // dedupe regen requests
}

// NewStore creates a threshold store at path. regen may be nil.
func NewStore(path string, regen RegenFunc) *Store {
	return &Store{
		path:      path,
		cache:     make(map[string]Set),
		regen:     regen,
		requested: make(map[string]time.Time),
	}
}

// Key builds the "SYMBOL_regime" lookup key, e.g. "BTC_USD_bullish".
func Key(symbol string, regime model.Regime) string {
	return strings.ToUpper(symbol) + "_" + string(regime)
}

// Get returns the tuned set for (symbol, regime) and whether it was found.
func (s *Store) Get(symbol string, regime model.Regime) (Set, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(false)
	set, ok := s.cache[Key(symbol, regime)]
	return set, ok
}

// Lookup returns the tuned set for (symbol, regime) when it is present,
// enabled, and fresh; otherwise an error wrapping
// model.ErrMissingOrStaleConfig saying why the set is unusable.
func (s *Store) Lookup(symbol string, regime model.Regime, now time.Time) (Set, error) {
	set, ok := s.Get(symbol, regime)
	switch {
	case !ok:
		return Set{}, fmt.Errorf("%w: no tuned set for %s", model.ErrMissingOrStaleConfig, Key(symbol, regime))
	case set.Outdated(now):
		return Set{}, fmt.Errorf("%w: set for %s outdated (tuned %s)",
			model.ErrMissingOrStaleConfig, Key(symbol, regime), set.Timestamp.Format(time.RFC3339))
	case !set.Enabled:
		return Set{}, fmt.Errorf("%w: set for %s disabled", model.ErrMissingOrStaleConfig, Key(symbol, regime))
	}
	return set, nil
}

// Resolve returns the set the engine should use right now: the tuned set if
// present and fresh, otherwise the regime default. A missing or stale set
// triggers an async regeneration request; the call never blocks on it.
func (s *Store) Resolve(symbol string, regime model.Regime, now time.Time) Set {
	set, err := s.Lookup(symbol, regime, now)
	if err == nil {
		return set
	}
	log.Printf("[threshold] %v, using defaults", err)
	s.requestRegen(symbol, regime, now)
	return Default(regime)
}

// Save writes one set, backing up the existing file first. The set's
// timestamp is stamped with the current time.
func (s *Store) Save(symbol string, regime model.Regime, set Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(true)

	if _, err := os.Stat(s.path); err == nil {
		backup := fmt.Sprintf("%s.backup.%d", s.path, time.Now().UnixMilli())
		if data, err := os.ReadFile(s.path); err == nil {
			if err := os.WriteFile(backup, data, 0o644); err != nil {
				log.Printf("[threshold] backup write failed: %v", err)
			}
		}
	}

	set.Enabled = true
	set.Timestamp = time.Now()
	s.cache[Key(symbol, regime)] = set

	data, err := json.MarshalIndent(s.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("threshold: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("threshold: write %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) requestRegen(symbol string, regime model.Regime, now time.Time) {
	if s.regen == nil {
		return
	}
	s.mu.Lock()
	key := Key(symbol, regime)
	if last, ok := s.requested[key]; ok && now.Sub(last) < OutdatedAfter {
		s.mu.Unlock()
		return
	}
	s.requested[key] = now
	regen := s.regen
	s.mu.Unlock()

	go regen(symbol, regime)
}

// loadLocked refreshes the cache from disk at most every reloadInterval,
// unless forced. Callers must hold s.mu.
func (s *Store) loadLocked(force bool) {
	now := time.Now()
	if !force && len(s.cache) > 0 && now.Sub(s.lastLoaded) < reloadInterval {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[threshold] read %s: %v", s.path, err)
		}
		return
	}
	parsed := make(map[string]Set)
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Printf("[threshold] parse %s: %v", s.path, err)
		return
	}
	s.cache = parsed
	s.lastLoaded = now
}
