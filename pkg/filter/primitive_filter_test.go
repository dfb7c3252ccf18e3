package filter

import "testing"

func TestGeometryFilter_DefaultAllEnabled(t *testing.T) {
	f := NewGeometryFilter()

	kinds := []PrimitiveKind{KindTriangle, KindQuad, KindCurve, KindUser, KindInstance}
	for _, k := range kinds {
		if !f.IsKindEnabled(k) {
			t.Errorf("IsKindEnabled(%v) = false, want true", k)
		}
	}
}

func TestGeometryFilter_DisableKind(t *testing.T) {
	f := NewGeometryFilter()
	f.DisableKind(KindCurve)

	if f.IsKindEnabled(KindCurve) {
		t.Error("IsKindEnabled(KindCurve) = true after DisableKind, want false")
	}
	if !f.IsKindEnabled(KindTriangle) {
		t.Error("IsKindEnabled(KindTriangle) = false, want true")
	}
}

func TestGeometryFilter_ShouldSkip(t *testing.T) {
	f := NewGeometryFilter()
	f.DisableKind(KindUser)
	f.ExcludeGeomID(42)
	f.ExcludeNamePrefix("proxy/")

	tests := []struct {
		name     string
		geomID   uint32
		kind     PrimitiveKind
		objName  string
		expected bool
	}{
		{"disabled kind", 1, KindUser, "mesh", true},
		{"excluded id", 42, KindTriangle, "mesh", true},
		{"excluded prefix", 7, KindTriangle, "proxy/helper", true},
		{"enabled and included", 7, KindTriangle, "hero_mesh", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.ShouldSkip(tt.geomID, tt.kind, tt.objName)
			if got != tt.expected {
				t.Errorf("ShouldSkip(%d, %v, %q) = %v, want %v", tt.geomID, tt.kind, tt.objName, got, tt.expected)
			}
		})
	}
}

func TestGeometryFilter_IncludeGeomID(t *testing.T) {
	f := NewGeometryFilter()
	f.ExcludeGeomID(5)
	if !f.ShouldSkip(5, KindTriangle, "mesh") {
		t.Fatal("expected geomID 5 to be skipped")
	}

	f.IncludeGeomID(5)
	if f.ShouldSkip(5, KindTriangle, "mesh") {
		t.Fatal("expected geomID 5 to no longer be skipped")
	}
}

func TestGeometryFilter_KindCache(t *testing.T) {
	f := NewGeometryFilter()
	f.RememberKind(10, KindQuad)

	if got := f.KindOf(10); got != KindQuad {
		t.Errorf("KindOf(10) = %v, want %v", got, KindQuad)
	}
	if got := f.KindOf(11); got != KindUnknown {
		t.Errorf("KindOf(11) = %v, want %v", got, KindUnknown)
	}

	size, max := f.CacheStats()
	if size != 1 {
		t.Errorf("CacheStats size = %d, want 1", size)
	}
	if max != 10000 {
		t.Errorf("CacheStats maxSize = %d, want 10000", max)
	}

	f.ClearCache()
	size, _ = f.CacheStats()
	if size != 0 {
		t.Errorf("CacheStats size after clear = %d, want 0", size)
	}
}

func TestPrimitiveKind_String(t *testing.T) {
	tests := []struct {
		kind PrimitiveKind
		want string
	}{
		{KindTriangle, "triangle"},
		{KindQuad, "quad"},
		{KindCurve, "curve"},
		{KindUser, "user"},
		{KindInstance, "instance"},
		{KindUnknown, "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestDefaultFilter_PackageLevel(t *testing.T) {
	DefaultFilter = NewGeometryFilter()

	DisableKind(KindInstance)
	if IsKindEnabled(KindInstance) {
		t.Error("IsKindEnabled(KindInstance) = true after package-level DisableKind")
	}

	EnableKind(KindInstance)
	if !IsKindEnabled(KindInstance) {
		t.Error("IsKindEnabled(KindInstance) = false after package-level EnableKind")
	}
}
