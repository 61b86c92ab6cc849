package render

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/rybkr/gitlane/internal/layout"
)

// SVGOptions controls the geometry of the generated document.
type SVGOptions struct {
	Width        int
	LaneHeight   int
	LabelWidth   int
	Margin       int
	CommitRadius int
	MergeRadius  int
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:        1000,
		LaneHeight:   48,
		LabelWidth:   140,
		Margin:       24,
		CommitRadius: 6,
		MergeRadius:  9,
	}
}

func (o SVGOptions) withDefaults() SVGOptions {
	d := DefaultSVGOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.LaneHeight <= 0 {
		o.LaneHeight = d.LaneHeight
	}
	if o.LabelWidth <= 0 {
		o.LabelWidth = d.LabelWidth
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
	if o.CommitRadius <= 0 {
		o.CommitRadius = d.CommitRadius
	}
	if o.MergeRadius <= 0 {
		o.MergeRadius = d.MergeRadius
	}
	return o
}

type svgCanvas struct {
	opts   SVGOptions
	height int
}

// px maps a normalized x in [0, 100] to a pixel column.
func (c svgCanvas) px(x float64) float64 {
	left := float64(c.opts.LabelWidth + c.opts.Margin)
	span := float64(c.opts.Width-c.opts.Margin) - left
	return left + x/100*span
}

// py maps a (possibly fractional) lane to the pixel row of its center.
func (c svgCanvas) py(lane float64) float64 {
	return float64(c.opts.Margin) + lane*float64(c.opts.LaneHeight) + float64(c.opts.LaneHeight)/2
}

// SVG writes res as a standalone SVG document: one band per lane with the
// branch name at its head, one circle per commit (larger for merges), tag
// badges above commits, straight lines within a lane and S-curves across
// lanes. Merge edges are dashed.
func SVG(w io.Writer, res layout.Result, opts SVGOptions) error {
	opts = opts.withDefaults()
	lanes := res.LaneCount()
	rows := lanes
	if rows == 0 {
		rows = 1
	}
	c := svgCanvas{opts: opts, height: 2*opts.Margin + rows*opts.LaneHeight}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="monospace" font-size="12">`+"\n",
		opts.Width, c.height, opts.Width, c.height)
	fmt.Fprintln(bw, `<style>.merge{stroke-dasharray:5 3}.edge{fill:none;stroke-width:2}.tag{fill:#fff8c5;stroke:#d4a72c}</style>`)

	if res.CommitCount() == 0 {
		fmt.Fprintf(bw, `<text x="%d" y="%.1f" fill="#666">No commits</text>`+"\n", opts.Margin, c.py(0))
		fmt.Fprintln(bw, `</svg>`)
		return bw.Flush()
	}

	overflow := res.OverflowLane()
	writeLanes(bw, c, res, lanes, overflow)
	for _, p := range res.MergePaths {
		writeEdge(bw, c, p, overflow)
	}
	for _, lc := range res.Commits {
		writeCommit(bw, c, lc, overflow)
	}

	fmt.Fprintln(bw, `</svg>`)
	return bw.Flush()
}

func writeLanes(w io.Writer, c svgCanvas, res layout.Result, lanes, overflow int) {
	names := make(map[int]string, len(res.Branches))
	for _, b := range res.Branches {
		names[b.Lane] = b.Name
	}
	for lane := 0; lane < lanes; lane++ {
		fill := "#ffffff"
		if lane%2 == 1 {
			fill = "#f6f8fa"
		}
		top := c.opts.Margin + lane*c.opts.LaneHeight
		fmt.Fprintf(w, `<rect x="0" y="%d" width="%d" height="%d" fill="%s"/>`+"\n", top, c.opts.Width, c.opts.LaneHeight, fill)

		label := names[lane]
		if lane == overflow {
			label = "(no branch)"
		}
		fmt.Fprintf(w, `<text x="%d" y="%.1f" fill="%s" dominant-baseline="middle">%s</text>`+"\n",
			c.opts.Margin/2, c.py(float64(lane)), laneColor(lane, overflow), html.EscapeString(label))
	}
}

func writeEdge(w io.Writer, c svgCanvas, p layout.MergePath, overflow int) {
	class := "edge"
	if p.IsMerge {
		class += " merge"
	}
	color := laneColor(p.ToLane, overflow)
	start, c1, c2, end := p.Curve()

	if p.Straight() {
		fmt.Fprintf(w, `<line class="%s" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`+"\n",
			class, c.px(start.X), c.py(start.Lane), c.px(end.X), c.py(end.Lane), color)
		return
	}
	fmt.Fprintf(w, `<path class="%s" d="M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f" stroke="%s"/>`+"\n",
		class,
		c.px(start.X), c.py(start.Lane),
		c.px(c1.X), c.py(c1.Lane),
		c.px(c2.X), c.py(c2.Lane),
		c.px(end.X), c.py(end.Lane),
		color)
}

func writeCommit(w io.Writer, c svgCanvas, lc layout.LayoutCommit, overflow int) {
	x, y := c.px(lc.X), c.py(float64(lc.Lane))
	r := c.opts.CommitRadius
	if lc.Commit.IsMerge {
		r = c.opts.MergeRadius
	}

	fmt.Fprintf(w, `<g class="commit" data-hash="%s">`, html.EscapeString(lc.Commit.Hash))
	fmt.Fprintf(w, `<circle cx="%.1f" cy="%.1f" r="%d" fill="%s" stroke="#fff" stroke-width="2">`, x, y, r, laneColor(lc.Lane, overflow))
	fmt.Fprintf(w, `<title>%s</title></circle>`, html.EscapeString(commitTitle(lc.Commit)))

	if len(lc.Commit.Tags) > 0 {
		label := html.EscapeString(strings.Join(lc.Commit.Tags, ", "))
		width := 8 + 7*len([]rune(strings.Join(lc.Commit.Tags, ", ")))
		top := y - float64(r) - 20
		fmt.Fprintf(w, `<rect class="tag" x="%.1f" y="%.1f" width="%d" height="16" rx="3"/>`, x-float64(width)/2, top, width)
		fmt.Fprintf(w, `<text x="%.1f" y="%.1f" text-anchor="middle">%s</text>`, x, top+12, label)
	}
	fmt.Fprintln(w, `</g>`)
}

func commitTitle(c layout.Commit) string {
	title := c.ShortHash
	if title == "" {
		title = layout.Short(c.Hash)
	}
	if c.Message != "" {
		title += " " + c.Message
	}
	if c.AuthorName != "" {
		title += " (" + c.AuthorName + ")"
	}
	return title
}
