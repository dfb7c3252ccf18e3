package bvhcore

import (
	"sync"
	"unsafe"
)

// MaxBranching is the largest N this package supports for an N-ary node.
const MaxBranching = 8

// RecordsPerBlock is K, the number of primitive records packed into one
// leaf block.
const RecordsPerBlock = 4

// NodeRef is an opaque 64-bit handle to either an interior Node or a Leaf.
// The low tag bit distinguishes the two; accessor functions are the only
// sanctioned way to unpack it, so the encoding can change without
// disturbing callers.
type NodeRef uint64

const (
	tagLeaf     = uint64(1)
	tagTypeMask = uint64(1)
	tagPtrShift = 1
)

// InvalidRef is the sentinel used to mark an unused child slot. It is
// never a valid node or leaf address.
const InvalidRef NodeRef = NodeRef(^uint64(0))

// nodeRefFor packs a block index and leaf flag into a NodeRef.
func nodeRefFor(blockIdx uint64, leaf bool) NodeRef {
	v := blockIdx << tagPtrShift
	if leaf {
		v |= tagLeaf
	}
	return NodeRef(v)
}

// IsLeaf reports whether r addresses a Leaf rather than an interior Node.
func (r NodeRef) IsLeaf() bool {
	return r != InvalidRef && uint64(r)&tagTypeMask == tagLeaf
}

// IsValid reports whether r is anything other than the sentinel.
func (r NodeRef) IsValid() bool {
	return r != InvalidRef
}

// blockIndex extracts the packed block index from r.
func (r NodeRef) blockIndex() uint64 {
	return uint64(r) >> tagPtrShift
}

// ChildSlot is one (child_ref, child_bounds) pair inside an interior Node.
type ChildSlot struct {
	Ref    NodeRef
	Bounds AABB
}

// Node is an N-ary interior node. Unused slots beyond Count carry
// InvalidRef and an empty AABB, satisfying the arity invariant that unused
// slots are exactly the invalid sentinel.
type Node struct {
	Children [MaxBranching]ChildSlot
	Count    int
}

// NewEmptyNode returns a Node with every slot set to the invalid sentinel.
func NewEmptyNode() *Node {
	n := &Node{}
	for i := range n.Children {
		n.Children[i] = ChildSlot{Ref: InvalidRef, Bounds: EmptyAABB()}
	}
	return n
}

// SetChild populates slot i with ref/bounds and grows Count if needed.
func (n *Node) SetChild(i int, ref NodeRef, bounds AABB) {
	n.Children[i] = ChildSlot{Ref: ref, Bounds: bounds}
	if i+1 > n.Count {
		n.Count = i + 1
	}
}

// Bounds returns the union of every populated child's bounds.
func (n *Node) Bounds() AABB {
	b := EmptyAABB()
	for i := 0; i < n.Count; i++ {
		if n.Children[i].Ref.IsValid() {
			b = b.Union(n.Children[i].Bounds)
		}
	}
	return b
}

// LeafRecord is one packed primitive record stored inside a Leaf block.
type LeafRecord struct {
	GeomID uint32
	PrimID uint32
}

// Leaf is a contiguous run of blocks = ceil(n/RecordsPerBlock) packed
// primitive records. This type places no bound on the record count. The
// SAH builder compares a leaf against MaxLeafSize * RecordsPerBlock only
// when it force-emits at MaxDepth (recording a depth-limit warning); a
// range for which no split beats the leaf cost becomes one leaf of any
// size.
type Leaf struct {
	Records []LeafRecord
	Bounds  AABB
}

// NumBlocks returns ceil(len(Records)/RecordsPerBlock).
func (l *Leaf) NumBlocks() int {
	return (len(l.Records) + RecordsPerBlock - 1) / RecordsPerBlock
}

// NodeStore owns every Node and Leaf produced by a single build. Interior
// nodes are ordinary Go heap objects (their child slots are mutated
// in place by the rotation pass, so they stay real pointers); leaf
// primitive records are instead carried on slices backed by the arena,
// fetched through a per-worker CachedAllocator, the bulk, write-once
// allocation the arena is sized for. Nodes and leaves are addressed by
// NodeRef rather than Go pointers so the store can later be serialized to
// a flat byte buffer (see treestore) without walking a pointer graph.
type NodeStore struct {
	mu     sync.Mutex
	arena  *Arena
	nodes  []*Node
	leaves []*Leaf
}

// NewNodeStore creates a store whose leaf records are allocated from
// arena. arena may be nil, in which case leaf records fall back to
// ordinary make()'d slices (used by tests that don't care about arena
// accounting).
func NewNodeStore(arena *Arena) *NodeStore {
	return &NodeStore{arena: arena}
}

// NewAllocator returns a fresh CachedAllocator over the store's arena, a
// per-worker handle. Callers obtain one per goroutine dispatched by the
// parallel builders and thread it through their own sequential recursion.
func (s *NodeStore) NewAllocator() *CachedAllocator {
	if s.arena == nil {
		return nil
	}
	return NewCachedAllocator(s.arena)
}

// AllocLeafRecords returns a []LeafRecord of length n backed by a single
// arena allocation from alloc. If alloc is nil (no arena configured), it
// falls back to a plain make().
func AllocLeafRecords(alloc *CachedAllocator, n int) []LeafRecord {
	if alloc == nil || n == 0 {
		return make([]LeafRecord, n)
	}
	buf, err := alloc.Alloc(n * bytesPerLeafRecord)
	if err != nil {
		return make([]LeafRecord, n)
	}
	return unsafe.Slice((*LeafRecord)(unsafe.Pointer(&buf[0])), n)
}

// AllocNode appends a fresh empty interior node and returns its NodeRef.
// Safe for concurrent use: parallel recursion in the top-down builders
// allocates nodes from multiple goroutines, so the slot array itself is
// guarded the way the arena's block free-list is (a single short lock
// around the append, never held across an Alloc call).
func (s *NodeStore) AllocNode() (NodeRef, *Node) {
	n := NewEmptyNode()
	s.mu.Lock()
	idx := len(s.nodes)
	s.nodes = append(s.nodes, n)
	s.mu.Unlock()
	return nodeRefFor(uint64(idx), false), n
}

// AllocLeaf appends a leaf built from records/bounds and returns its NodeRef.
func (s *NodeStore) AllocLeaf(records []LeafRecord, bounds AABB) NodeRef {
	l := &Leaf{Records: records, Bounds: bounds}
	s.mu.Lock()
	idx := len(s.leaves)
	s.leaves = append(s.leaves, l)
	s.mu.Unlock()
	return nodeRefFor(uint64(idx), true)
}

// Node dereferences a NodeRef known to address an interior node.
func (s *NodeStore) Node(r NodeRef) *Node {
	return s.nodes[r.blockIndex()]
}

// Leaf dereferences a NodeRef known to address a leaf.
func (s *NodeStore) Leaf(r NodeRef) *Leaf {
	return s.leaves[r.blockIndex()]
}

// PromoteLargeLeaves reorders the store's leaf slice so every leaf in
// promoted comes first, in the given order, occupying a dedicated region
// at the front of the buffer Serialize later writes; every NodeRef in the
// tree that addressed a moved leaf is rewritten to its new index.
func (s *NodeStore) PromoteLargeLeaves(promoted []NodeRef) {
	if len(promoted) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	remap := make(map[uint64]uint64, len(s.leaves))
	moved := make(map[uint64]bool, len(promoted))
	reordered := make([]*Leaf, 0, len(s.leaves))
	for _, ref := range promoted {
		idx := ref.blockIndex()
		if moved[idx] {
			continue
		}
		moved[idx] = true
		remap[idx] = uint64(len(reordered))
		reordered = append(reordered, s.leaves[idx])
	}
	for idx, leaf := range s.leaves {
		if moved[uint64(idx)] {
			continue
		}
		remap[uint64(idx)] = uint64(len(reordered))
		reordered = append(reordered, leaf)
	}
	s.leaves = reordered

	for _, n := range s.nodes {
		for i := 0; i < n.Count; i++ {
			slot := &n.Children[i]
			if slot.Ref.IsValid() && slot.Ref.IsLeaf() {
				slot.Ref = nodeRefFor(remap[slot.Ref.blockIndex()], true)
			}
		}
	}
}

// NumNodes returns the number of interior nodes allocated so far.
func (s *NodeStore) NumNodes() int { return len(s.nodes) }

// NumLeaves returns the number of leaves allocated so far.
func (s *NodeStore) NumLeaves() int { return len(s.leaves) }

// bytesPerChildSlot and bytesPerLeafRecord are fixed in-memory sizes used
// only for byte-footprint reporting, not for any on-disk layout guarantee.
const (
	bytesPerChildSlot  = 8 + 6*8 // NodeRef + two Vec3
	bytesPerLeafRecord = 8       // two uint32
)

// ByteSize estimates the arena footprint of everything allocated so far,
// used to report BuildStats.NodeBytes/LeafBytes without walking the arena.
func (s *NodeStore) ByteSize() (nodeBytes, leafBytes int64) {
	nodeBytes = int64(len(s.nodes)) * int64(MaxBranching*bytesPerChildSlot)
	for _, l := range s.leaves {
		leafBytes += int64(len(l.Records)) * int64(bytesPerLeafRecord)
	}
	return
}
