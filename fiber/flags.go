package fiber

import "strings"

// Flags mark the host mutations a node needs during commit.
type Flags uint8

const (
	Placement Flags = 1 << iota
	UpdateFlag
	ChildDeletion

	NoFlags      Flags = 0
	MutationMask       = Placement | UpdateFlag | ChildDeletion
)

func (f Flags) String() string {
	if f == NoFlags {
		return "none"
	}
	var names []string
	if f&Placement != 0 {
		names = append(names, "placement")
	}
	if f&UpdateFlag != 0 {
		names = append(names, "update")
	}
	if f&ChildDeletion != 0 {
		names = append(names, "child-deletion")
	}
	return strings.Join(names, "|")
}
