// internal/app/target_resolver.go
package app

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"geo_checkin_bot/internal/domain/checkin"

	"github.com/sirupsen/logrus"
)

type targetCacheKey struct {
	kind   checkin.SessionKind
	cohort checkin.Cohort
}

// TargetResolver merges the two catalogs of a session kind and caches the result per cohort.
// The last successful list is also written to the local store, so selections keep working
// while both catalogs are unreachable, across restarts too.
type TargetResolver struct {
	catalog checkin.TargetCatalog
	store   checkin.LocalStore
	logger  *logrus.Entry

	mu    sync.RWMutex
	cache map[targetCacheKey][]checkin.Target
}

// NewTargetResolver builds a resolver. store may be nil, which keeps the cache in memory only.
func NewTargetResolver(catalog checkin.TargetCatalog, store checkin.LocalStore, logger *logrus.Entry) *TargetResolver {
	return &TargetResolver{
		catalog: catalog,
		store:   store,
		logger:  logger,
		cache:   make(map[targetCacheKey][]checkin.Target),
	}
}

// ResolveTargets fetches, merges, dedupes and sorts the targets for a student.
// A failing catalog contributes nothing; an empty result is a valid outcome.
func (r *TargetResolver) ResolveTargets(ctx context.Context, kind checkin.SessionKind, profile checkin.Profile) []checkin.Target {
	cohort := profile.Cohort()
	log := r.logger.WithFields(logrus.Fields{
		"kind":        kind,
		"program":     cohort.Program,
		"intake_year": cohort.IntakeYear,
		"block_term":  cohort.BlockTerm,
	})

	key := targetCacheKey{kind: kind, cohort: cohort}

	direct, directErr := r.catalog.ListTargets(ctx, kind, cohort)
	if directErr != nil {
		log.WithError(directErr).Warn("Direct target catalog unavailable")
		direct = nil
	}
	mapped, mappedErr := r.catalog.ListMappedTargets(ctx, kind, cohort)
	if mappedErr != nil {
		log.WithError(mappedErr).Warn("Mapped target catalog unavailable")
		mapped = nil
	}

	// Nothing was fetched: keep whatever list the student already chose from.
	if directErr != nil && mappedErr != nil {
		if cached, ok := r.cached(key); ok {
			log.WithField("targets_count", len(cached)).Info("Both target catalogs unavailable, serving cached targets")
			return cached
		}
		return []checkin.Target{}
	}

	targets := mergeTargets(direct, mapped)
	for i := range targets {
		targets[i].Kind = kind
	}

	r.mu.Lock()
	r.cache[key] = targets
	r.mu.Unlock()
	r.persist(key, targets, log)

	log.WithField("targets_count", len(targets)).Debug("Targets resolved")
	return targets
}

// cached returns the in-memory list, or the persisted one when memory was invalidated or lost.
func (r *TargetResolver) cached(key targetCacheKey) ([]checkin.Target, bool) {
	r.mu.RLock()
	targets, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && len(targets) > 0 {
		return targets, true
	}
	if r.store == nil {
		return nil, false
	}

	raw, found, err := r.store.Get(checkin.TargetsKey(key.kind, key.cohort))
	if err != nil || !found {
		return nil, false
	}
	if err := json.Unmarshal([]byte(raw), &targets); err != nil || len(targets) == 0 {
		return nil, false
	}
	r.mu.Lock()
	r.cache[key] = targets
	r.mu.Unlock()
	return targets, true
}

func (r *TargetResolver) persist(key targetCacheKey, targets []checkin.Target, log *logrus.Entry) {
	if r.store == nil {
		return
	}
	raw, err := json.Marshal(targets)
	if err == nil {
		err = r.store.Set(checkin.TargetsKey(key.kind, key.cohort), string(raw))
	}
	if err != nil {
		log.WithError(err).Warn("Failed to persist resolved targets")
	}
}

// Lookup finds a target in the cached list from the last ResolveTargets call.
func (r *TargetResolver) Lookup(kind checkin.SessionKind, profile checkin.Profile, targetID string) (checkin.Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.cache[targetCacheKey{kind: kind, cohort: profile.Cohort()}] {
		if t.ID == targetID {
			return t, true
		}
	}
	return checkin.Target{}, false
}

// Invalidate drops every in-memory catalog so the next selection refetches it.
// Persisted lists are kept as the offline fallback.
func (r *TargetResolver) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[targetCacheKey][]checkin.Target)
	r.mu.Unlock()
}

// mergeTargets keeps the first target seen for each display name and sorts by name.
func mergeTargets(sources ...[]checkin.Target) []checkin.Target {
	seen := make(map[string]struct{})
	merged := make([]checkin.Target, 0)
	for _, src := range sources {
		for _, t := range src {
			name := strings.TrimSpace(t.Name)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			t.Name = name
			merged = append(merged, t)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := strings.ToLower(merged[i].Name), strings.ToLower(merged[j].Name)
		if a == b {
			return merged[i].Name < merged[j].Name
		}
		return a < b
	})
	return merged
}
