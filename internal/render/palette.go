// Package render draws a layout.Result. SVG produces a standalone document
// for the web view; Terminal produces a colored text log.
package render

// palette colors lanes in order, wrapping around.
var palette = []string{
	"#4e79a7", "#f28e2b", "#59a14f", "#e15759", "#b07aa1",
	"#76b7b2", "#edc948", "#ff9da7", "#9c755f",
}

// overflowColor is used for the lane of commits that belong to no branch.
const overflowColor = "#9e9e9e"

func laneColor(lane, overflow int) string {
	if lane == overflow {
		return overflowColor
	}
	return palette[lane%len(palette)]
}
