package quern

// A Partition is a contiguous portion of a Frame, tagged with its original
// position within the parent so that results and diagnostics can refer back
// to it. Partitions own independent copies of their rows and share no mutable
// state with the parent Frame or with sibling Partitions, which makes them
// safe to hand to concurrent workers.
type Partition struct {
	Frame *Frame
	Index int
}

// NumRows returns the number of rows in this Partition
func (p Partition) NumRows() int {
	if p.Frame == nil {
		return 0
	}
	return p.Frame.NumRows()
}
