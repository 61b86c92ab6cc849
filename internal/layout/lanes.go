package layout

import "sort"

// Branch is a branch name and the lane assigned to it for one layout call.
type Branch struct {
	Name string `json:"name"`
	Lane int    `json:"lane"`
}

// branchTier ranks well-known GitFlow branch names ahead of everything else.
func branchTier(name string) int {
	switch name {
	case "main", "master":
		return 0
	case "develop", "dev":
		return 1
	default:
		return 2
	}
}

// ResolveBranches collects every branch name referenced by commits and assigns
// each a lane. main/master come first, then develop/dev, then the rest in
// byte-wise order.
func ResolveBranches(commits []Commit) []Branch {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, c := range commits {
		for _, name := range c.Branches {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	sort.Slice(names, func(i, j int) bool {
		ti, tj := branchTier(names[i]), branchTier(names[j])
		if ti != tj {
			return ti < tj
		}
		return names[i] < names[j]
	})

	branches := make([]Branch, len(names))
	for i, name := range names {
		branches[i] = Branch{Name: name, Lane: i}
	}
	return branches
}

// LaneIndex maps branch names to lanes.
func LaneIndex(branches []Branch) map[string]int {
	lanes := make(map[string]int, len(branches))
	for _, b := range branches {
		lanes[b.Name] = b.Lane
	}
	return lanes
}
