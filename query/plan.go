package query

import "fmt"

// Node is one node of an immutable query plan tree. The concrete types are
// the only legal variants; the interface is sealed so the executor can fail
// fast on anything it does not know.
type Node interface {
	fmt.Stringer

	planNode()
}

// ScanNode produces every row of a table. Order is undefined but stable for
// a fixed storage snapshot.
type ScanNode struct {
	Table string
}

func (n *ScanNode) String() string { return fmt.Sprintf("Scan(%s)", n.Table) }

// GeodesicScanNode produces the rows of a table whose point column lies
// within Radius (inclusive) of Start under the named kernel, annotating
// each with ColDistance. An empty Kernel means kernel.Default.
type GeodesicScanNode struct {
	Table  string
	Start  []float64
	Radius float64
	Kernel string
}

func (n *GeodesicScanNode) String() string {
	return fmt.Sprintf("GeodesicScan(%s, r=%g)", n.Table, n.Radius)
}

// FilterNode passes every row of its input through unchanged. No predicate
// is evaluated; this mirrors the reference behavior, which never completed
// predicate evaluation. The pass-through is pinned by tests and must not be
// silently replaced with invented predicate semantics.
type FilterNode struct {
	Input Node
}

func (n *FilterNode) String() string { return fmt.Sprintf("Filter(%s)", n.Input) }

// JoinNode is a nested-loop cross join. Row maps are merged; on key
// collision the right side overwrites the left. No predicate pushdown.
type JoinNode struct {
	Left  Node
	Right Node
}

func (n *JoinNode) String() string { return fmt.Sprintf("Join(%s, %s)", n.Left, n.Right) }

// GeodesicJoinNode is a nested-loop join emitting only the pairs whose point
// columns are within Threshold (inclusive) under the named kernel,
// annotating each merged row with ColJoinDistance. Empty column names mean
// ColPoint; an empty Kernel means kernel.Default.
type GeodesicJoinNode struct {
	Left        Node
	Right       Node
	Threshold   float64
	LeftColumn  string
	RightColumn string
	Kernel      string
}

func (n *GeodesicJoinNode) String() string {
	return fmt.Sprintf("GeodesicJoin(%s, %s, t=%g)", n.Left, n.Right, n.Threshold)
}

// LimitNode yields at most N rows and stops consuming its input once N are
// produced.
type LimitNode struct {
	Input Node
	N     int
}

func (n *LimitNode) String() string { return fmt.Sprintf("Limit(%s, %d)", n.Input, n.N) }

func (*ScanNode) planNode()         {}
func (*GeodesicScanNode) planNode() {}
func (*FilterNode) planNode()       {}
func (*JoinNode) planNode()         {}
func (*GeodesicJoinNode) planNode() {}
func (*LimitNode) planNode()        {}
