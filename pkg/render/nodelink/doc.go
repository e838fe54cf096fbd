// Package nodelink draws selected topologies as node-link diagrams.
//
// [ToDOT] turns a [selection.Structure] into Graphviz DOT source: each arc
// becomes an edge from parent to child labelled with its link weight, laid
// out bottom to top so that the root sits at the bottom of the picture.
// [RenderSVG] and [RenderPNG] run the layout in-process with
// [github.com/goccy/go-graphviz]; no external Graphviz install is needed.
//
//	dot := nodelink.ToDOT(x.Structure, nodelink.Options{Root: root, Depths: true})
//	png, err := nodelink.RenderPNG(ctx, dot)
package nodelink
