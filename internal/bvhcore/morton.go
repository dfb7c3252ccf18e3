package bvhcore

import "math/bits"

// mortonBits is the number of bits quantized per axis: 3*mortonBits must
// not exceed 64 (63 used, top bit left zero).
const mortonBits = 21

// mortonScale is the quantization range per axis, pulled in slightly from
// the full 2^21 so the inclusive upper bound of a centroid range never
// rounds up and overflows the bit field.
const mortonScale = float64(uint32(1)<<mortonBits) * 0.99

// spreadLUT[b] spreads the 8 bits of b into bit positions 0,3,6,...,21,
// leaving two zero bits between each source bit. Interleaving x, y, z then
// reduces to three table lookups per byte, OR'd together with a 1- or
// 2-bit shift.
var spreadLUT [256]uint64

func init() {
	for b := 0; b < 256; b++ {
		var v uint64
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				v |= 1 << uint(3*bit)
			}
		}
		spreadLUT[b] = v
	}
}

// spread21 interleaves the low 21 bits of v with two zero bits after each,
// via three byte-wide LUT lookups.
func spread21(v uint32) uint64 {
	v &= (1 << mortonBits) - 1
	b0 := v & 0xff
	b1 := (v >> 8) & 0xff
	b2 := (v >> 16) & 0xff
	return spreadLUT[b0] | (spreadLUT[b1] << 24) | (spreadLUT[b2] << 48)
}

// InterleaveMorton3 packs three 21-bit quantized coordinates into a single
// 63-bit Morton key: bit 3k+0 is x's bit k, 3k+1 is y's, 3k+2 is z's.
func InterleaveMorton3(qx, qy, qz uint32) uint64 {
	return spread21(qx) | (spread21(qy) << 1) | (spread21(qz) << 2)
}

// quantizeAxis maps c in [cmin, cmax] to an integer in [0, 2^mortonBits-1].
func quantizeAxis(c, cmin, cmax float64) uint32 {
	if cmax <= cmin {
		return 0
	}
	q := int64(mortonScale * (c - cmin) / (cmax - cmin))
	if q < 0 {
		q = 0
	}
	if max := int64(1)<<mortonBits - 1; q > max {
		q = max
	}
	return uint32(q)
}

// MortonRecord pairs a 63-bit Morton code with the (geomID, primID) of the
// primitive it was computed from; this is the unit the radix sort and the
// LBVH builder both operate on.
type MortonRecord struct {
	Code   uint64
	GeomID uint32
	PrimID uint32
}

// ComputeMortonCodes produces one MortonRecord per PrimRef, quantizing
// each centroid against centroidBounds.
func ComputeMortonCodes(refs []PrimRef, centroidBounds AABB) []MortonRecord {
	out := make([]MortonRecord, len(refs))
	cxmin, cxmax := centroidBounds.Lower.X, centroidBounds.Upper.X
	cymin, cymax := centroidBounds.Lower.Y, centroidBounds.Upper.Y
	czmin, czmax := centroidBounds.Lower.Z, centroidBounds.Upper.Z
	for i, r := range refs {
		c := r.Centroid()
		qx := quantizeAxis(c.X, cxmin, cxmax)
		qy := quantizeAxis(c.Y, cymin, cymax)
		qz := quantizeAxis(c.Z, czmin, czmax)
		out[i] = MortonRecord{
			Code:   InterleaveMorton3(qx, qy, qz),
			GeomID: r.GeomID,
			PrimID: r.PrimID,
		}
	}
	return out
}

// CommonPrefixLen returns the number of leading bits a and b share,
// counting from bit 62 down to bit 0 (bit 63 is always zero). Used by the
// LBVH top-down split to find the highest differing Morton bit.
func CommonPrefixLen(a, b uint64) int {
	x := (a ^ b) << 1 // bit 63 is unused; shift it out before counting
	lz := bits.LeadingZeros64(x)
	if lz > 63 {
		return 63
	}
	return lz
}
