package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	erpdomain "github.com/storefront/backend/internal/domain/erp"
	"github.com/storefront/backend/internal/domain/store"
)

// maxDiagnosticSamples bounds the unresolved-code samples kept for the
// diagnostics endpoint
const maxDiagnosticSamples = 20

// MappingResolver resolves storefront product codes against the price
// book. Loading is lazy and failure-tolerant: a failed load leaves the
// resolver unloaded so the next caller retries, and unresolved lookups
// are counted for diagnostics instead of treated as errors.
type MappingResolver struct {
	source store.ProductSource
	logger *zap.Logger

	mu      sync.RWMutex
	loaded  bool
	records map[string]store.ProductRecord

	group singleflight.Group

	unresolvedCount   int
	unresolvedSamples []string
	sampleSeen        map[string]struct{}
}

// NewMappingResolver creates an unloaded resolver over the given source
func NewMappingResolver(source store.ProductSource, logger *zap.Logger) *MappingResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MappingResolver{
		source:     source,
		logger:     logger,
		records:    make(map[string]store.ProductRecord),
		sampleSeen: make(map[string]struct{}),
	}
}

// Normalize canonicalizes a product code for lookup: surrounding
// whitespace, hyphens, inner spaces, and leading zeros are
// presentation noise that varies between the price book and the ERP.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	code = strings.TrimLeft(code, "0")
	return strings.ToUpper(code)
}

// EnsureLoaded loads the price book on first use. Idempotent: once a
// load has succeeded later calls return immediately; a failed load is
// retried by the next caller. Concurrent first callers share a single
// load instead of each reading the source.
func (r *MappingResolver) EnsureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	_, err, _ := r.group.Do("load", func() (interface{}, error) {
		// A caller queued behind a concurrent load may find the mapping
		// already in place.
		r.mu.RLock()
		done := r.loaded
		r.mu.RUnlock()
		if done {
			return nil, nil
		}
		return nil, r.Refresh(ctx)
	})
	return err
}

// Refresh reloads the price book unconditionally. The previous mapping
// stays in place until the new load succeeds.
func (r *MappingResolver) Refresh(ctx context.Context) error {
	records, err := r.source.LoadAll(ctx)
	if err != nil {
		r.logger.Error("Price book load failed", zap.Error(err))
		return fmt.Errorf("%w: %v", erpdomain.ErrMappingSourceUnavailable, err)
	}

	index := make(map[string]store.ProductRecord, len(records))
	for _, rec := range records {
		key := Normalize(rec.Code)
		if key == "" {
			continue
		}
		index[key] = rec
	}

	r.mu.Lock()
	r.records = index
	r.loaded = true
	r.mu.Unlock()

	r.logger.Info("Price book mapping loaded", zap.Int("entries", len(index)))
	return nil
}

// Resolve looks up a product code, normalized. The second return is
// false when the code has no price book entry; the miss is recorded
// for diagnostics.
func (r *MappingResolver) Resolve(code string) (store.ProductRecord, bool) {
	key := Normalize(code)

	r.mu.RLock()
	rec, ok := r.records[key]
	r.mu.RUnlock()
	if ok {
		return rec, true
	}

	r.recordUnresolved(code)
	return store.ProductRecord{}, false
}

// ApplyNames enriches an inventory snapshot with price book names,
// prices, units, and categories. Unrecognized codes pass through
// unenriched with Resolved=false so the storefront can still list them.
func (r *MappingResolver) ApplyNames(products []store.CatalogProduct) []store.CatalogProduct {
	for i := range products {
		rec, ok := r.Resolve(products[i].Code)
		if !ok {
			products[i].Resolved = false
			continue
		}
		if rec.Name != "" {
			products[i].Name = rec.Name
		}
		products[i].Price = rec.Price
		products[i].Unit = rec.Unit
		products[i].Category = rec.Category
		products[i].Resolved = true
	}
	return products
}

// recordUnresolved counts a lookup miss and keeps a bounded sample set
func (r *MappingResolver) recordUnresolved(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unresolvedCount++
	if _, seen := r.sampleSeen[code]; seen {
		return
	}
	if len(r.unresolvedSamples) < maxDiagnosticSamples {
		r.sampleSeen[code] = struct{}{}
		r.unresolvedSamples = append(r.unresolvedSamples, code)
	}
}

// Diagnostics is a point-in-time view of the resolver for the admin
// diagnostics endpoint
type Diagnostics struct {
	Loaded            bool     `json:"loaded"`
	Entries           int      `json:"entries"`
	UnresolvedCount   int      `json:"unresolved_count"`
	UnresolvedSamples []string `json:"unresolved_samples"`
}

// Diagnostics returns load state and unresolved-lookup statistics
func (r *MappingResolver) Diagnostics() Diagnostics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	samples := make([]string, len(r.unresolvedSamples))
	copy(samples, r.unresolvedSamples)

	return Diagnostics{
		Loaded:            r.loaded,
		Entries:           len(r.records),
		UnresolvedCount:   r.unresolvedCount,
		UnresolvedSamples: samples,
	}
}
