package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
)

// Supported output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatDOT = "dot"
)

// Formats lists the values accepted by [ValidateFormat].
var Formats = []string{FormatPNG, FormatSVG, FormatDOT}

// ValidateFormat reports whether format can be produced by [Render].
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if f == format {
			return nil
		}
	}
	return apperr.New(apperr.ErrCodeInvalidFormat, "unsupported format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// Options configures diagram generation.
type Options struct {
	// Root is highlighted when it is part of the structure.
	Root int
	// Depths adds the depth of each node to its label.
	Depths bool
	// Title is drawn above the diagram when set.
	Title string
}

// ToDOT converts a result structure to Graphviz DOT source.
func ToDOT(s *selection.Structure, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", opts.Title)
	}
	buf.WriteString("\n")

	for _, n := range s.Nodes() {
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(s, n, opts.Depths))}
		if n == opts.Root {
			attrs = append(attrs, "shape=doublecircle", "fillcolor=\"#b2dfdb\"")
		}
		fmt.Fprintf(&buf, "  \"%d\" [%s];\n", n, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, a := range s.Arcs() {
		fmt.Fprintf(&buf, "  \"%d\" -> \"%d\" [label=\"%.1f\"];\n", a.Parent, a.Child, a.Weight)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(s *selection.Structure, n int, depths bool) string {
	if !depths {
		return strconv.Itoa(n)
	}
	d, _ := s.Depth(n)
	return fmt.Sprintf("%d\nd=%d", n, d)
}

// Render produces format from DOT source. FormatDOT returns the source.
func Render(ctx context.Context, dot, format string) ([]byte, error) {
	switch format {
	case FormatSVG:
		return RenderSVG(ctx, dot)
	case FormatPNG:
		return RenderPNG(ctx, dot)
	case FormatDOT:
		return []byte(dot), nil
	}
	return nil, ValidateFormat(format)
}

// RenderSVG lays out dot and returns SVG with a normalized viewBox.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG lays out dot and returns a PNG image.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
