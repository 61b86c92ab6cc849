package layout

// Curve control points sit at these fractions of an edge's horizontal span.
const (
	curveNear = 0.3
	curveFar  = 0.7
)

// MergePath is a drawable edge from a child commit to one of its parents.
// IsMerge is set only for the secondary parents of a merge commit; the first
// parent is an ordinary continuation.
type MergePath struct {
	FromHash string  `json:"fromHash"`
	ToHash   string  `json:"toHash"`
	FromX    float64 `json:"fromX"`
	FromLane int     `json:"fromLane"`
	ToX      float64 `json:"toX"`
	ToLane   int     `json:"toLane"`
	IsMerge  bool    `json:"isMerge"`
}

// Point is a location in layout space: X in [0, 100] and a (possibly
// fractional) lane.
type Point struct {
	X    float64
	Lane float64
}

// Straight reports whether the edge stays within one lane.
func (p MergePath) Straight() bool {
	return p.FromLane == p.ToLane
}

// Curve returns the cubic Bézier for the edge: start, two control points and
// end. Cross-lane edges bend into an S-shape; for straight edges the control
// points lie on the line.
func (p MergePath) Curve() (start, c1, c2, end Point) {
	dx := p.ToX - p.FromX
	start = Point{X: p.FromX, Lane: float64(p.FromLane)}
	end = Point{X: p.ToX, Lane: float64(p.ToLane)}
	c1 = Point{X: p.FromX + dx*curveNear, Lane: float64(p.FromLane)}
	c2 = Point{X: p.FromX + dx*curveFar, Lane: float64(p.ToLane)}
	return start, c1, c2, end
}

// RouteEdges emits one path per (commit, parent) pair whose parent has a
// position. Parents outside the supplied window are skipped. Duplicate parent
// entries are kept as-is.
func RouteEdges(commits []Commit, index map[string]Position) []MergePath {
	paths := make([]MergePath, 0)
	for _, c := range commits {
		from, ok := index[c.Hash]
		if !ok {
			continue
		}
		for i, parent := range c.Parents {
			to, ok := index[parent]
			if !ok {
				continue
			}
			paths = append(paths, MergePath{
				FromHash: c.Hash,
				ToHash:   parent,
				FromX:    from.X,
				FromLane: from.Lane,
				ToX:      to.X,
				ToLane:   to.Lane,
				IsMerge:  c.IsMerge && i > 0,
			})
		}
	}
	return paths
}
