package pipeline

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	errs "github.com/matzehuels/repobubbles/pkg/errors"
	"github.com/matzehuels/repobubbles/pkg/observability"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

// MaxTreeDepth bounds the nesting of input trees.
const MaxTreeDepth = 256

// StdinPath names standard input as a tree source.
const StdinPath = "-"

// Source describes where a tree is read from.
type Source struct {
	// Path is a directory, a JSON tree file, a "path:count" lines file, or
	// StdinPath.
	Path string

	// Lines reads "path:count" lines instead of JSON from files and stdin.
	// Files ending in .txt or .lines are always read as lines.
	Lines bool

	// Stdin is read when Path is StdinPath. Nil means os.Stdin.
	Stdin io.Reader

	// Exclude overrides the names skipped by directory walks.
	Exclude []string
}

// String returns a short description of the source for logs and metrics.
func (s Source) String() string {
	if s.Path == StdinPath || s.Path == "" {
		return "stdin"
	}
	return s.Path
}

// LoadTree reads the tree described by src.
func LoadTree(ctx context.Context, src Source) (*tree.Node, error) {
	start := time.Now()
	root, err := loadTree(src)
	if err == nil {
		err = errs.ValidateTreeDepth(depth(root), MaxTreeDepth)
	}
	if err != nil {
		observability.Pipeline().OnTreeLoaded(ctx, src.String(), 0, time.Since(start), err)
		return nil, err
	}
	observability.Pipeline().OnTreeLoaded(ctx, src.String(), tree.Count(root), time.Since(start), nil)
	return root, nil
}

func loadTree(src Source) (*tree.Node, error) {
	if src.Path == StdinPath || src.Path == "" {
		r := src.Stdin
		if r == nil {
			r = os.Stdin
		}
		return decode(r, src.Lines)
	}

	info, err := os.Stat(src.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "tree source %s", src.Path)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return tree.FromDir(src.Path, tree.DirOptions{Exclude: src.Exclude})
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".txt", ".lines":
		return decode(f, true)
	default:
		return decode(f, src.Lines)
	}
}

func decode(r io.Reader, lines bool) (*tree.Node, error) {
	if lines {
		return tree.FromLines(r)
	}
	root, err := tree.ReadJSON(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read tree")
	}
	return root, nil
}

func depth(n *tree.Node) int {
	if n == nil {
		return 0
	}
	d := 0
	for _, c := range n.Children {
		d = max(d, depth(c))
	}
	return d + 1
}
