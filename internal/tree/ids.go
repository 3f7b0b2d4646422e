package tree

// NodeID identifies a node inside a Tree arena.
type NodeID uint32

// NoNodeID marks the absence of a node reference.
const NoNodeID NodeID = 0

// IsValid reports whether the id refers to an allocated slot.
func (id NodeID) IsValid() bool { return id != NoNodeID }
