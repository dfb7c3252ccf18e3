package bvhcore

import (
	"fmt"

	"github.com/lange-studios/gobvh/pkg/bvherr"
)

// invalidPrimitiveError names the specific primitive behind a
// bvherr.CodeInvalidPrimitive error so callers can correlate warnings
// back to a (geomID, primID) pair.
type invalidPrimitiveError struct {
	geomID uint32
	primID uint32
}

func (e *invalidPrimitiveError) Error() string {
	return fmt.Sprintf("primitive (geomID=%d, primID=%d) has a non-finite or degenerate bound", e.geomID, e.primID)
}

func (e *invalidPrimitiveError) Unwrap() error {
	return bvherr.ErrInvalidPrimitive
}

// depthLimitError reports that a range could not be split below
// maxBuildDepth and was force-emitted as an oversized leaf.
type depthLimitError struct {
	depth int
	count int
}

func (e *depthLimitError) Error() string {
	return fmt.Sprintf("depth limit %d reached with %d primitives remaining, force-emitting oversized leaf", e.depth, e.count)
}

func (e *depthLimitError) Unwrap() error {
	return bvherr.ErrDepthLimit
}

// capacityExceededError reports that the spatial-split replication budget
// ran out, or maxGeomID exceeded the bit budget, forcing a fallback.
type capacityExceededError struct {
	reason string
}

func (e *capacityExceededError) Error() string {
	return "spatial split capacity exceeded: " + e.reason
}

func (e *capacityExceededError) Unwrap() error {
	return bvherr.ErrCapacityExceeded
}
