package bvhcore

import "sort"

// RotationPasses is the number of root-down sweeps the rotation pass
// makes by default.
const RotationPasses = 4

// LargeLeafFraction is the share of leaves promoted to dedicated storage
// by the large-node layout pass.
const LargeLeafFraction = 0.005

// RotateTree performs RotationPasses root-down sweeps, at each interior
// node trying to swap one of its grandchildren with a sibling's child
// whenever the swap lowers the summed surface area of the two affected
// child slots. The criterion uses surface areas only: costs is not read,
// and callers may pass DefaultCosts().
func RotateTree(store *NodeStore, root NodeRef, costs Costs) {
	if !root.IsValid() || root.IsLeaf() {
		return
	}
	for pass := 0; pass < RotationPasses; pass++ {
		rotatePass(store, root, costs)
	}
}

func rotatePass(store *NodeStore, ref NodeRef, costs Costs) AABB {
	if !ref.IsValid() {
		return EmptyAABB()
	}
	if ref.IsLeaf() {
		return store.Leaf(ref).Bounds
	}
	node := store.Node(ref)

	for i := 0; i < node.Count; i++ {
		if node.Children[i].Ref.IsValid() && !node.Children[i].Ref.IsLeaf() {
			node.Children[i].Bounds = rotatePass(store, node.Children[i].Ref, costs)
		}
	}

	tryRotateOnce(store, node)

	b := EmptyAABB()
	for i := 0; i < node.Count; i++ {
		if node.Children[i].Ref.IsValid() {
			b = b.Union(node.Children[i].Bounds)
		}
	}
	return b
}

// tryRotateOnce considers swapping a grandchild of node's i-th child with
// a sibling child j of node, keeping the swap only if it lowers the
// combined surface-area cost of i and j.
func tryRotateOnce(store *NodeStore, node *Node) {
	for i := 0; i < node.Count; i++ {
		childRef := node.Children[i].Ref
		if !childRef.IsValid() || childRef.IsLeaf() {
			continue
		}
		child := store.Node(childRef)
		for g := 0; g < child.Count; g++ {
			grandchild := child.Children[g]
			if !grandchild.Ref.IsValid() {
				continue
			}
			for j := 0; j < node.Count; j++ {
				if j == i || !node.Children[j].Ref.IsValid() {
					continue
				}
				before := node.Children[i].Bounds.SurfaceArea() + node.Children[j].Bounds.SurfaceArea()

				sibling := node.Children[j]
				newChildBounds := boundsWithout(child, g).Union(sibling.Bounds)
				after := newChildBounds.SurfaceArea() + grandchild.Bounds.SurfaceArea()

				if after < before {
					child.Children[g] = sibling
					node.Children[j] = grandchild
					node.Children[i].Bounds = newChildBounds
					return
				}
			}
		}
	}
}

func boundsWithout(node *Node, skip int) AABB {
	b := EmptyAABB()
	for i := 0; i < node.Count; i++ {
		if i == skip || !node.Children[i].Ref.IsValid() {
			continue
		}
		b = b.Union(node.Children[i].Bounds)
	}
	return b
}

// LeafInfo identifies one leaf by ref along with its item count, used by
// LargeNodeLayout to rank leaves by size.
type LeafInfo struct {
	Ref   NodeRef
	Count int
}

// CollectLeaves walks the tree rooted at root and returns every leaf's
// ref and item count, in traversal order.
func CollectLeaves(store *NodeStore, root NodeRef) []LeafInfo {
	var out []LeafInfo
	var walk func(NodeRef)
	walk = func(ref NodeRef) {
		if !ref.IsValid() {
			return
		}
		if ref.IsLeaf() {
			out = append(out, LeafInfo{Ref: ref, Count: len(store.Leaf(ref).Records)})
			return
		}
		node := store.Node(ref)
		for i := 0; i < node.Count; i++ {
			walk(node.Children[i].Ref)
		}
	}
	walk(root)
	return out
}

// LargeNodeLayout identifies the largest LargeLeafFraction of leaves (by
// item count) and returns their refs, in descending size order. Builder.Build
// passes the result to NodeStore.PromoteLargeLeaves, which moves them to a
// dedicated region at the front of the leaf slice so the largest, most
// frequently traversed leaves serialize contiguously.
func LargeNodeLayout(store *NodeStore, root NodeRef) []NodeRef {
	leaves := CollectLeaves(store, root)
	if len(leaves) == 0 {
		return nil
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Count > leaves[j].Count })

	n := int(float64(len(leaves)) * LargeLeafFraction)
	if n < 1 {
		n = 1
	}
	if n > len(leaves) {
		n = len(leaves)
	}

	out := make([]NodeRef, n)
	for i := 0; i < n; i++ {
		out[i] = leaves[i].Ref
	}
	return out
}
