// Package colors maps file extensions to display colors.
//
// The engine never owns or mutates a color table. Callers inject a [Table]
// and the engine only queries it. [Linguist] returns the default table,
// built from the language colors published by github/linguist and keyed by
// file extension without the leading dot.
package colors

import "strings"

// Default is the neutral color used for extensions without a known color.
const Default = "#CED6E0"

// Table is a read-only extension to color mapping.
type Table interface {
	// Lookup returns the color for ext (no leading dot) and whether it is known.
	Lookup(ext string) (string, bool)
}

// Map is a Table backed by a plain map. Keys are lower-case extensions.
type Map map[string]string

// Lookup implements Table. Matching is case-insensitive.
func (m Map) Lookup(ext string) (string, bool) {
	if ext == "" {
		return "", false
	}
	c, ok := m[strings.ToLower(ext)]
	return c, ok
}

// Resolve returns the color for ext, or Default when t is nil or the
// extension is unknown.
func Resolve(t Table, ext string) string {
	if t == nil {
		return Default
	}
	if c, ok := t.Lookup(ext); ok {
		return c
	}
	return Default
}

// Known reports whether t has a color for ext.
func Known(t Table, ext string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Lookup(ext)
	return ok
}

// Linguist returns the built-in extension table.
// The returned map is a fresh copy; callers may extend it freely.
func Linguist() Map {
	m := make(Map, len(linguist))
	for k, v := range linguist {
		m[k] = v
	}
	return m
}

var linguist = map[string]string{
	"astro":      "#ff5a03",
	"c":          "#555555",
	"cc":         "#f34b7d",
	"clj":        "#db5855",
	"cljs":       "#f1e05a",
	"coffee":     "#244776",
	"cpp":        "#f34b7d",
	"cs":         "#178600",
	"css":        "#563d7c",
	"cts":        "#3178c6",
	"dart":       "#00B4AB",
	"dockerfile": "#384d54",
	"elm":        "#60B5CC",
	"erl":        "#B83998",
	"ex":         "#6e4a7e",
	"exs":        "#6e4a7e",
	"fs":         "#b845fc",
	"go":         "#00ADD8",
	"graphql":    "#e10098",
	"groovy":     "#4298b8",
	"h":          "#555555",
	"hbs":        "#f7931e",
	"hpp":        "#f34b7d",
	"hs":         "#5e5086",
	"html":       "#e34c26",
	"ipynb":      "#DA5B0B",
	"java":       "#b07219",
	"jl":         "#a270ba",
	"js":         "#f1e05a",
	"json":       "#292929",
	"jsx":        "#f1e05a",
	"kt":         "#A97BFF",
	"less":       "#1d365d",
	"lua":        "#000080",
	"m":          "#438eff",
	"md":         "#083fa1",
	"mdx":        "#fcb32c",
	"mjs":        "#f1e05a",
	"ml":         "#3be133",
	"mts":        "#3178c6",
	"nim":        "#ffc200",
	"nix":        "#7e7eff",
	"php":        "#4F5D95",
	"pl":         "#0298c3",
	"proto":      "#ffffff",
	"ps1":        "#012456",
	"py":         "#3572A5",
	"r":          "#198CE7",
	"rb":         "#701516",
	"rs":         "#dea584",
	"sass":       "#a53b70",
	"scala":      "#c22d40",
	"scss":       "#c6538c",
	"sh":         "#89e051",
	"sql":        "#e38c00",
	"svelte":     "#ff3e00",
	"swift":      "#F05138",
	"tf":         "#7b42bb",
	"toml":       "#9c4221",
	"ts":         "#3178c6",
	"tsx":        "#3178c6",
	"vue":        "#41b883",
	"xml":        "#0060ac",
	"yaml":       "#cb171e",
	"yml":        "#cb171e",
	"zig":        "#ec915c",
}
