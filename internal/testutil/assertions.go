package testutil

import (
	"testing"

	"github.com/lange-studios/gobvh/internal/bvhcore"
)

// AssertContainsAABB asserts that outer fully contains inner on every axis.
func AssertContainsAABB(t *testing.T, outer, inner bvhcore.AABB) {
	t.Helper()
	if !outer.Contains(inner) {
		t.Errorf("bounds %+v do not contain %+v", outer, inner)
	}
}

// AssertValidAABB asserts that b has lower <= upper on every axis.
func AssertValidAABB(t *testing.T, b bvhcore.AABB) {
	t.Helper()
	if !b.Valid() {
		t.Errorf("bounds %+v are not valid (lower > upper on some axis)", b)
	}
}

// AssertTreeBoundsContainScene walks store from root and asserts every
// interior node's bounds fully contain each child slot's recorded bounds,
// the invariant a completed build must hold end to end. rootBounds is the
// BVH.Bounds value returned alongside root by Builder.Build.
func AssertTreeBoundsContainScene(t *testing.T, store *bvhcore.NodeStore, root bvhcore.NodeRef, rootBounds bvhcore.AABB) {
	t.Helper()
	AssertValidAABB(t, rootBounds)
	walkAndCheck(t, store, root, rootBounds)
}

func walkAndCheck(t *testing.T, store *bvhcore.NodeStore, ref bvhcore.NodeRef, bounds bvhcore.AABB) {
	t.Helper()
	if !ref.IsValid() || ref.IsLeaf() {
		return
	}
	node := store.Node(ref)
	for i := 0; i < node.Count; i++ {
		slot := node.Children[i]
		if !slot.Ref.IsValid() {
			continue
		}
		AssertContainsAABB(t, bounds, slot.Bounds)
		walkAndCheck(t, store, slot.Ref, slot.Bounds)
	}
}
