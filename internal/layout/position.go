package layout

import "sort"

// Position is where a commit sits on the timeline. X is normalized to [0, 100].
type Position struct {
	X    float64 `json:"x"`
	Lane int     `json:"lane"`
}

// LayoutCommit is a commit enriched with its placement. Branch is the branch
// that decided the lane, empty when the commit sits in the overflow lane.
type LayoutCommit struct {
	Commit Commit  `json:"commit"`
	X      float64 `json:"x"`
	Lane   int     `json:"lane"`
	Branch string  `json:"branch"`
}

// PositionCommits orders commits oldest first and spaces them evenly along the
// x axis. Spacing is by index, not by timestamp, so long gaps in history do not
// squash the rest of the graph. Commits without a branch go to overflow.
//
// The returned index maps each hash to its position; RouteEdges uses it to
// resolve parents.
func PositionCommits(commits []Commit, lanes map[string]int, overflow int) ([]LayoutCommit, map[string]Position) {
	sorted := make([]Commit, len(commits))
	copy(sorted, commits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	n := len(sorted)
	placed := make([]LayoutCommit, 0, n)
	index := make(map[string]Position, n)

	for i, c := range sorted {
		x := 0.0
		if n > 1 {
			x = float64(i) / float64(n-1) * 100
		}

		lane := overflow
		branch := ""
		if len(c.Branches) > 0 {
			// First branch wins when a commit carries several.
			branch = c.Branches[0]
			if l, ok := lanes[branch]; ok {
				lane = l
			} else {
				branch = ""
			}
		}

		placed = append(placed, LayoutCommit{Commit: c, X: x, Lane: lane, Branch: branch})
		index[c.Hash] = Position{X: x, Lane: lane}
	}

	return placed, index
}
