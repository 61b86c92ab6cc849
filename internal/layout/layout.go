package layout

// Result is everything a renderer needs to draw the legend, lanes, nodes and
// edges of a commit history.
type Result struct {
	Commits    []LayoutCommit `json:"layoutCommits"`
	MergePaths []MergePath    `json:"mergePaths"`
	Branches   []Branch       `json:"branches"`
}

// Compute runs the full pipeline: resolve lanes, position commits, route edges.
// The same input always yields the same Result.
func Compute(commits []Commit) Result {
	branches := ResolveBranches(commits)
	placed, index := PositionCommits(commits, LaneIndex(branches), len(branches))
	return Result{
		Commits:    placed,
		MergePaths: RouteEdges(commits, index),
		Branches:   branches,
	}
}

func (r Result) BranchCount() int { return len(r.Branches) }

func (r Result) CommitCount() int { return len(r.Commits) }

// OverflowLane is the lane used by commits that belong to no known branch.
func (r Result) OverflowLane() int { return len(r.Branches) }

// LaneCount is the number of rows a renderer must reserve, including the
// overflow lane when any commit uses it.
func (r Result) LaneCount() int {
	for _, c := range r.Commits {
		if c.Lane == r.OverflowLane() {
			return len(r.Branches) + 1
		}
	}
	return len(r.Branches)
}
