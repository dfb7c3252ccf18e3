package bvhcore

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Serialize flattens every interior node and leaf allocated so far into
// the two byte buffers treestore.TreeBlob carries, fulfilling the layout
// NodeStore's doc comment promises: no pointer graph to walk on the way
// back in, just two slices and a root NodeRef.
func (s *NodeStore) Serialize() (nodes, leaves []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var nb bytes.Buffer
	if err := binary.Write(&nb, binary.LittleEndian, uint64(len(s.nodes))); err != nil {
		return nil, nil, err
	}
	for _, n := range s.nodes {
		if err := binary.Write(&nb, binary.LittleEndian, uint32(n.Count)); err != nil {
			return nil, nil, err
		}
		for i := 0; i < MaxBranching; i++ {
			slot := n.Children[i]
			if err := writeChildSlot(&nb, slot); err != nil {
				return nil, nil, err
			}
		}
	}

	var lb bytes.Buffer
	if err := binary.Write(&lb, binary.LittleEndian, uint64(len(s.leaves))); err != nil {
		return nil, nil, err
	}
	for _, l := range s.leaves {
		if err := writeAABB(&lb, l.Bounds); err != nil {
			return nil, nil, err
		}
		if err := binary.Write(&lb, binary.LittleEndian, uint64(len(l.Records))); err != nil {
			return nil, nil, err
		}
		for _, rec := range l.Records {
			if err := binary.Write(&lb, binary.LittleEndian, rec.GeomID); err != nil {
				return nil, nil, err
			}
			if err := binary.Write(&lb, binary.LittleEndian, rec.PrimID); err != nil {
				return nil, nil, err
			}
		}
	}

	return nb.Bytes(), lb.Bytes(), nil
}

// Deserialize rebuilds a NodeStore from the byte buffers Serialize
// produced. The returned store has no arena attached; it is meant for
// read-only traversal, not further allocation.
func Deserialize(nodes, leaves []byte) (*NodeStore, error) {
	s := NewNodeStore(nil)

	nr := bytes.NewReader(nodes)
	var nodeCount uint64
	if err := binary.Read(nr, binary.LittleEndian, &nodeCount); err != nil {
		return nil, fmt.Errorf("bvhcore: deserialize node count: %w", err)
	}
	s.nodes = make([]*Node, nodeCount)
	for i := range s.nodes {
		var count uint32
		if err := binary.Read(nr, binary.LittleEndian, &count); err != nil {
			return nil, fmt.Errorf("bvhcore: deserialize node %d: %w", i, err)
		}
		node := NewEmptyNode()
		node.Count = int(count)
		for j := 0; j < MaxBranching; j++ {
			slot, err := readChildSlot(nr)
			if err != nil {
				return nil, fmt.Errorf("bvhcore: deserialize node %d slot %d: %w", i, j, err)
			}
			node.Children[j] = slot
		}
		s.nodes[i] = node
	}

	lr := bytes.NewReader(leaves)
	var leafCount uint64
	if err := binary.Read(lr, binary.LittleEndian, &leafCount); err != nil {
		return nil, fmt.Errorf("bvhcore: deserialize leaf count: %w", err)
	}
	s.leaves = make([]*Leaf, leafCount)
	for i := range s.leaves {
		bounds, err := readAABB(lr)
		if err != nil {
			return nil, fmt.Errorf("bvhcore: deserialize leaf %d bounds: %w", i, err)
		}
		var recordCount uint64
		if err := binary.Read(lr, binary.LittleEndian, &recordCount); err != nil {
			return nil, fmt.Errorf("bvhcore: deserialize leaf %d record count: %w", i, err)
		}
		records := make([]LeafRecord, recordCount)
		for j := range records {
			if err := binary.Read(lr, binary.LittleEndian, &records[j].GeomID); err != nil {
				return nil, fmt.Errorf("bvhcore: deserialize leaf %d record %d: %w", i, j, err)
			}
			if err := binary.Read(lr, binary.LittleEndian, &records[j].PrimID); err != nil {
				return nil, fmt.Errorf("bvhcore: deserialize leaf %d record %d: %w", i, j, err)
			}
		}
		s.leaves[i] = &Leaf{Records: records, Bounds: bounds}
	}

	return s, nil
}

func writeChildSlot(w *bytes.Buffer, slot ChildSlot) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(slot.Ref)); err != nil {
		return err
	}
	return writeAABB(w, slot.Bounds)
}

func readChildSlot(r *bytes.Reader) (ChildSlot, error) {
	var ref uint64
	if err := binary.Read(r, binary.LittleEndian, &ref); err != nil {
		return ChildSlot{}, err
	}
	bounds, err := readAABB(r)
	if err != nil {
		return ChildSlot{}, err
	}
	return ChildSlot{Ref: NodeRef(ref), Bounds: bounds}, nil
}

func writeAABB(w *bytes.Buffer, b AABB) error {
	vals := [6]float64{b.Lower.X, b.Lower.Y, b.Lower.Z, b.Upper.X, b.Upper.Y, b.Upper.Z}
	for _, v := range vals {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readAABB(r *bytes.Reader) (AABB, error) {
	var vals [6]float64
	for i := range vals {
		if err := binary.Read(r, binary.LittleEndian, &vals[i]); err != nil {
			return AABB{}, err
		}
	}
	return AABB{
		Lower: Vec3{X: vals[0], Y: vals[1], Z: vals[2]},
		Upper: Vec3{X: vals[3], Y: vals[4], Z: vals[5]},
	}, nil
}
