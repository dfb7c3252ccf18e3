// Package filter provides unified primitive-kind filtering logic for
// scene loading. It consolidates the enable/disable rules that decide
// whether a geometry's primitives are handed to the builder at all.
package filter

import (
	"strings"
	"sync"
)

// PrimitiveKind identifies the geometric type backing a PrimRef.
type PrimitiveKind int

const (
	// KindUnknown indicates the primitive kind could not be determined.
	KindUnknown PrimitiveKind = iota
	// KindTriangle indicates a triangle mesh primitive.
	KindTriangle
	// KindQuad indicates a quad mesh primitive.
	KindQuad
	// KindCurve indicates a curve/hair primitive.
	KindCurve
	// KindUser indicates a user-defined (custom intersector) primitive.
	KindUser
	// KindInstance indicates an instanced sub-scene.
	KindInstance
)

// String returns the string representation of the kind.
func (k PrimitiveKind) String() string {
	switch k {
	case KindTriangle:
		return "triangle"
	case KindQuad:
		return "quad"
	case KindCurve:
		return "curve"
	case KindUser:
		return "user"
	case KindInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// GeometryFilter decides whether a geometry's primitives participate in a
// build. It is safe for concurrent use, since primitive-ref generation
// runs one goroutine per geometry.
type GeometryFilter struct {
	mu sync.RWMutex

	// Kinds enabled by default. Disabled kinds are skipped entirely during
	// PrimRef generation.
	enabledKinds map[PrimitiveKind]bool

	// Geometry IDs excluded regardless of kind (e.g. geometry marked
	// invisible to the builder by the scene loader).
	excludedGeomIDs map[uint32]bool

	// Name-prefix rules, useful when geometries are tagged by the scene
	// loader with a debug name such as "proxy/" or "helper/".
	excludedNamePrefixes []string

	// Cache of the last classification made for a geomID, since the same
	// geomID is queried once per primitive it owns.
	kindCache     map[uint32]PrimitiveKind
	kindCacheSize int
}

// NewGeometryFilter creates a GeometryFilter with every kind enabled.
func NewGeometryFilter() *GeometryFilter {
	f := &GeometryFilter{
		enabledKinds:    make(map[PrimitiveKind]bool),
		excludedGeomIDs: make(map[uint32]bool),
		kindCache:       make(map[uint32]PrimitiveKind),
		kindCacheSize:   10000,
	}
	f.initDefaults()
	return f
}

func (f *GeometryFilter) initDefaults() {
	f.enabledKinds = map[PrimitiveKind]bool{
		KindTriangle: true,
		KindQuad:     true,
		KindCurve:    true,
		KindUser:     true,
		KindInstance: true,
	}
}

// RememberKind records the kind of a geomID so future lookups avoid
// re-deriving it from the scene.
func (f *GeometryFilter) RememberKind(geomID uint32, kind PrimitiveKind) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.kindCache) >= f.kindCacheSize {
		return
	}
	f.kindCache[geomID] = kind
}

// KindOf returns the cached kind for geomID, or KindUnknown if never recorded.
func (f *GeometryFilter) KindOf(geomID uint32) PrimitiveKind {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.kindCache[geomID]
}

// IsKindEnabled reports whether primitives of the given kind should be
// included in a build.
func (f *GeometryFilter) IsKindEnabled(kind PrimitiveKind) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.enabledKinds[kind]
}

// EnableKind enables a primitive kind.
func (f *GeometryFilter) EnableKind(kind PrimitiveKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabledKinds[kind] = true
}

// DisableKind disables a primitive kind. Geometries of that kind are
// skipped by later PrimRef generation; PrimRefs already generated are not
// affected.
func (f *GeometryFilter) DisableKind(kind PrimitiveKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabledKinds[kind] = false
}

// ExcludeGeomID excludes a specific geometry regardless of its kind.
func (f *GeometryFilter) ExcludeGeomID(geomID uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.excludedGeomIDs[geomID] = true
}

// IncludeGeomID removes a geometry from the exclusion list.
func (f *GeometryFilter) IncludeGeomID(geomID uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.excludedGeomIDs, geomID)
}

// ExcludeNamePrefix excludes any geometry whose debug name starts with prefix.
func (f *GeometryFilter) ExcludeNamePrefix(prefix string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.excludedNamePrefixes = append(f.excludedNamePrefixes, prefix)
}

// ShouldSkip reports whether the given geometry should be skipped during
// PrimRef generation: either its kind is disabled, its geomID is excluded,
// or its debug name matches an excluded prefix.
func (f *GeometryFilter) ShouldSkip(geomID uint32, kind PrimitiveKind, name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.enabledKinds[kind] {
		return true
	}
	if f.excludedGeomIDs[geomID] {
		return true
	}
	for _, prefix := range f.excludedNamePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// ClearCache clears the kind cache.
func (f *GeometryFilter) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kindCache = make(map[uint32]PrimitiveKind)
}

// CacheStats returns cache statistics.
func (f *GeometryFilter) CacheStats() (size int, maxSize int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.kindCache), f.kindCacheSize
}

// DefaultFilter is the default global filter instance, used by builders
// that do not construct their own GeometryFilter.
var DefaultFilter = NewGeometryFilter()

// ShouldSkip checks the default filter.
func ShouldSkip(geomID uint32, kind PrimitiveKind, name string) bool {
	return DefaultFilter.ShouldSkip(geomID, kind, name)
}

// IsKindEnabled checks the default filter.
func IsKindEnabled(kind PrimitiveKind) bool {
	return DefaultFilter.IsKindEnabled(kind)
}

// DisableKind disables a kind on the default filter.
func DisableKind(kind PrimitiveKind) {
	DefaultFilter.DisableKind(kind)
}

// EnableKind enables a kind on the default filter.
func EnableKind(kind PrimitiveKind) {
	DefaultFilter.EnableKind(kind)
}
