// Package pkg provides the core libraries for Repobubbles codebase diagrams.
//
// # Overview
//
// Repobubbles draws a file tree as nested circles: one circle per file,
// sized by its weight, inside one circle per folder. Successive layouts of
// the same project keep circles close to where they were, so two diagrams
// of a changing codebase can be compared side by side.
//
// # Architecture
//
// The typical data flow:
//
//	directory walk / tree.json / "path:count" lines
//	         ↓
//	    [tree] package (raw file tree)
//	         ↓
//	    [hierarchy] package (weights, chain collapse, loose-file bucket)
//	         ↓
//	    [pack] package (initial circle packing)
//	         ↓
//	    [reflow] package (settle circles near their previous positions)
//	         ↓
//	    [diagram] package (serializable layout)
//	         ↓
//	    SVG/PDF/PNG/JSON output
//
// [engine] ties normalize, pack and reflow together and owns one project's
// [poscache]. [pipeline] adds tree loading, caching and rendering on top
// and is shared by the CLI and the HTTP server.
//
// # Quick Start
//
//	root, _ := tree.FromDir("./myrepo", tree.DirOptions{})
//
//	eng := engine.New(engine.WithColors(colors.Linguist()))
//	t := eng.Layout(root)
//
//	l := diagram.FromTree(t, layout.MaxDepth, colors.Linguist())
//	svg := svg.Render(l, svg.WithLegend(true))
//
// Calling eng.Layout again with a changed tree moves existing circles as
// little as possible. Persist eng.Cache() between processes with
// [pipeline.Runner.SaveSnapshot].
//
// # Main Packages
//
//   - [tree]: file tree input (directory walk, JSON, line format)
//   - [hierarchy]: normalized hierarchy with weights, colors and sort keys
//   - [pack]: front-chain circle packing
//   - [reflow]: force simulation that keeps containment and separation
//   - [poscache]: per-project positions and sibling orders
//   - [engine]: the stateful layout engine
//   - [diagram]: the layout.json format
//   - [render]: SVG to PDF/PNG conversion; [render/svg] and
//     [render/nodelink] draw the two diagram types
//   - [cache]: file, Redis and MongoDB cache backends
//   - [pipeline]: load → layout → render with caching
//   - [config]: TOML settings with environment overrides
//   - [observability]: hooks for metrics and tracing
//
// # Testing
//
//	go test ./pkg/...             # All tests
//	go test ./pkg/reflow/...      # Specific package
//	go test -run Example ./pkg/...  # Examples only
//
// [tree]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/tree
// [hierarchy]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/hierarchy
// [pack]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/pack
// [reflow]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/reflow
// [poscache]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/poscache
// [engine]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/engine
// [diagram]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/diagram
// [render]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/render
// [render/svg]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/render/svg
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/cache
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/pipeline
// [pipeline.Runner.SaveSnapshot]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/pipeline#Runner.SaveSnapshot
// [config]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/repobubbles/pkg/observability
package pkg
