package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/repobubbles/pkg/diagram"
)

// testEnv is a temp repo plus a config pointing the file cache at a temp dir.
type testEnv struct {
	repo     string
	out      string
	cacheDir string
	config   string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	base := t.TempDir()
	env := testEnv{
		repo:     filepath.Join(base, "myrepo"),
		out:      filepath.Join(base, "out"),
		cacheDir: filepath.Join(base, "cache"),
		config:   filepath.Join(base, "config.toml"),
	}

	files := map[string]string{
		"main.go":           "package main\n\nfunc main() {}\n",
		"README.md":         "# myrepo\n",
		"pkg/a/a.go":        strings.Repeat("// a\n", 40),
		"pkg/a/a_test.go":   strings.Repeat("// t\n", 10),
		"pkg/b/b.go":        strings.Repeat("// b\n", 25),
		"web/app.ts":        strings.Repeat("let x = 1;\n", 12),
		"web/style/app.css": "body {}\n",
	}
	for name, body := range files {
		p := filepath.Join(env.repo, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(env.out, 0755); err != nil {
		t.Fatal(err)
	}

	cfg := fmt.Sprintf("[cache]\nbackend = \"file\"\ndir = %q\n", env.cacheDir)
	if err := os.WriteFile(env.config, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return env
}

// run executes the root command with the test config.
func (e testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	return root.ExecuteContext(context.Background())
}

func TestLayoutCommand(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.out, "repo.layout.json")

	if err := env.run(t, "layout", env.repo, "-o", out); err != nil {
		t.Fatalf("layout: %v", err)
	}
	first, err := diagram.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if first.VizType != diagram.VizTypeBubbles {
		t.Errorf("viz type = %q, want %q", first.VizType, diagram.VizTypeBubbles)
	}
	if len(first.Circles) == 0 {
		t.Fatal("layout has no circles")
	}
	if _, err := os.Stat(env.cacheDir); err != nil {
		t.Errorf("cache dir not created: %v", err)
	}

	// A second run over the same tree reuses the saved positions.
	if err := env.run(t, "layout", env.repo, "-o", out); err != nil {
		t.Fatalf("second layout: %v", err)
	}
	second, err := diagram.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	pos := make(map[string]diagram.Circle, len(first.Circles))
	for _, c := range first.Circles {
		pos[c.Path] = c
	}
	for _, c := range second.Circles {
		p, ok := pos[c.Path]
		if !ok {
			t.Errorf("circle %q appeared on unchanged tree", c.Path)
			continue
		}
		if p.X != c.X || p.Y != c.Y || p.R != c.R {
			t.Errorf("circle %q moved: (%g,%g,%g) -> (%g,%g,%g)", c.Path, p.X, p.Y, p.R, c.X, c.Y, c.R)
		}
	}
}

func TestLayoutCommandExclude(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.out, "repo.layout.json")

	if err := env.run(t, "layout", env.repo, "-o", out, "--exclude", "web", "--no-cache"); err != nil {
		t.Fatalf("layout: %v", err)
	}
	l, err := diagram.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range l.Circles {
		if strings.HasPrefix(c.Path, "web") {
			t.Errorf("excluded path %q was laid out", c.Path)
		}
	}
}

func TestRenderCommand(t *testing.T) {
	env := newTestEnv(t)
	base := filepath.Join(env.out, "pic")

	if err := env.run(t, "render", env.repo, "-f", "svg,json", "-o", base); err != nil {
		t.Fatalf("render: %v", err)
	}

	svg, err := os.ReadFile(base + ".svg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Errorf("svg output does not look like svg: %.80q", svg)
	}
	if _, err := diagram.ReadFile(base + ".json"); err != nil {
		t.Errorf("json output: %v", err)
	}
}

func TestRenderCommandErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"render", env.repo, "-f", "gif"}},
		{"stdout with two formats", []string{"render", env.repo, "-f", "svg,json", "-o", "-"}},
		{"missing input", []string{"render", filepath.Join(env.repo, "nope.json")}},
		{"bad project", []string{"render", env.repo, "-p", "../escape", "-o", filepath.Join(env.out, "x.svg")}},
		{"no args", []string{"render"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := env.run(t, tt.args...); err == nil {
				t.Errorf("%v: expected error", tt.args)
			}
		})
	}
}

func TestVisualizeCommand(t *testing.T) {
	env := newTestEnv(t)
	layoutPath := filepath.Join(env.out, "repo.layout.json")
	svgPath := filepath.Join(env.out, "repo.svg")

	if err := env.run(t, "layout", env.repo, "-o", layoutPath); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if err := env.run(t, "visualize", layoutPath, "-o", svgPath); err != nil {
		t.Fatalf("visualize: %v", err)
	}
	data, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Errorf("visualize output is not svg: %.80q", data)
	}
}

func TestCacheCommands(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.out, "repo.layout.json")

	if err := env.run(t, "layout", env.repo, "-o", out, "-p", "demo"); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if n := countFiles(t, env.cacheDir); n == 0 {
		t.Fatal("layout wrote nothing to the cache")
	}

	if err := env.run(t, "cache", "forget", "demo"); err != nil {
		t.Fatalf("cache forget: %v", err)
	}
	if err := env.run(t, "cache", "forget", "_bad"); err == nil {
		t.Error("forget with an invalid project id should fail")
	}
	if err := env.run(t, "cache", "path"); err != nil {
		t.Fatalf("cache path: %v", err)
	}

	if err := env.run(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if n := countFiles(t, env.cacheDir); n != 0 {
		t.Errorf("cache clear left %d files", n)
	}
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)
	for _, args := range [][]string{{"config", "show"}, {"config", "path"}} {
		if err := env.run(t, args...); err != nil {
			t.Errorf("%v: %v", args, err)
		}
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[canvas]\ncolour = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	env.config = bad
	if err := env.run(t, "config", "show"); err == nil {
		t.Error("unknown config key should fail")
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if os.IsNotExist(err) {
			return filepath.SkipDir
		}
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}
