package tree

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	errs "github.com/matzehuels/repobubbles/pkg/errors"
)

func TestFromLines(t *testing.T) {
	input := `src/index.ts:42
src/lib/util.ts:7

README.md:10
src/app.ts:3
`
	root, err := FromLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("FromLines: %v", err)
	}
	if root.Name != "." || root.Path != "" {
		t.Errorf("root = %q/%q, want ./\"\"", root.Name, root.Path)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children))
	}

	src := root.Children[0]
	if src.Name != "src" || src.Path != "src" || src.Size != folderSize {
		t.Errorf("src = %+v", src)
	}
	if len(src.Children) != 3 {
		t.Fatalf("src children = %d, want 3", len(src.Children))
	}
	if got := src.Children[1].Path; got != "src/lib" {
		t.Errorf("lib path = %q", got)
	}
	if got := src.Children[1].Children[0].Path; got != "src/lib/util.ts" {
		t.Errorf("util path = %q", got)
	}
	readme := root.Children[1]
	if readme.Path != "README.md" || readme.Size != 10 || !readme.IsLeaf() {
		t.Errorf("readme = %+v", readme)
	}
	if got := Count(root); got != 7 {
		t.Errorf("Count = %d, want 7", got)
	}
}

func TestFromLinesErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing count", "src/a.go\n"},
		{"non numeric", "src/a.go:abc\n"},
		{"negative", "src/a.go:-1\n"},
		{"empty name", "src/:4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLines(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("error code = %v, want INVALID_INPUT", errs.GetCode(err))
			}
		})
	}
}

func TestFromDir(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "main.go"), "package main\n")
	mustWrite(t, filepath.Join(dir, "pkg", "a", "a.go"), "package a\n")
	mustWrite(t, filepath.Join(dir, ".git", "HEAD"), "ref\n")

	root, err := FromDir(dir, DirOptions{})
	if err != nil {
		t.Fatalf("FromDir: %v", err)
	}
	if root.Path != "" {
		t.Errorf("root path = %q, want empty", root.Path)
	}

	paths := map[string]float64{}
	Walk(root, func(n *Node) bool {
		paths[n.Path] = n.Size
		return true
	})
	if _, ok := paths[".git"]; ok {
		t.Error(".git should be excluded")
	}
	if got := paths["main.go"]; got != float64(len("package main\n")) {
		t.Errorf("main.go size = %v", got)
	}
	if _, ok := paths["pkg/a/a.go"]; !ok {
		t.Errorf("missing pkg/a/a.go in %v", paths)
	}
}

func TestFromDirNoExclude(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, ".git", "HEAD"), "ref\n")

	root, err := FromDir(dir, DirOptions{Exclude: []string{}})
	if err != nil {
		t.Fatalf("FromDir: %v", err)
	}
	if len(root.Children) != 1 || root.Children[0].Name != ".git" {
		t.Errorf("children = %+v", root.Children)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	root := &Node{Name: "r", Children: []*Node{
		{Name: "a.go", Path: "a.go", Size: 3},
	}}
	var buf bytes.Buffer
	if err := WriteJSON(root, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"path": "a.go"`) {
		t.Errorf("unexpected JSON: %s", buf.String())
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Children) != 1 || got.Children[0].Size != 3 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestWalkSkipsNil(t *testing.T) {
	root := &Node{Name: "r", Children: []*Node{nil, {Name: "a"}}}
	if got := Count(root); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
