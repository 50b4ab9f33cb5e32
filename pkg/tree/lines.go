package tree

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	errs "github.com/matzehuels/repobubbles/pkg/errors"
)

// folderSize is the nominal size given to folders synthesized from lines.
const folderSize = 4096

// FromLines builds a tree from line-oriented input of the form
//
//	src/index.ts:42
//	README.md:10
//
// Each line names a file path and a count (lines of code, bytes, or any other
// weight). Intermediate folders are created on first use. Blank lines are
// ignored; a line without a numeric count is an INVALID_INPUT error.
func FromLines(r io.Reader) (*Node, error) {
	root := &Node{Name: ".", Path: "", Size: folderSize}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		dirs, name, count, err := parseLine(line)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "line %d", lineNo)
		}
		insert(root, dirs, name, count)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return root, nil
}

func parseLine(line string) (dirs []string, name string, count float64, err error) {
	i := strings.LastIndexByte(line, ':')
	if i < 0 {
		return nil, "", 0, errs.New(errs.ErrCodeInvalidInput, "missing count in %q", line)
	}
	path, raw := line[:i], strings.TrimSpace(line[i+1:])
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || n < 0 {
		return nil, "", 0, errs.New(errs.ErrCodeInvalidInput, "invalid count %q", raw)
	}

	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	name = segments[len(segments)-1]
	if name == "" {
		return nil, "", 0, errs.New(errs.ErrCodeInvalidInput, "empty path in %q", line)
	}
	return segments[:len(segments)-1], name, n, nil
}

func insert(node *Node, dirs []string, name string, count float64) {
	current := ""
	for _, dir := range dirs {
		if current == "" {
			current = dir
		} else {
			current += "/" + dir
		}

		var next *Node
		for _, c := range node.Children {
			if c.Name == dir && c.Children != nil {
				next = c
				break
			}
		}
		if next == nil {
			next = &Node{Name: dir, Path: current, Size: folderSize, Children: []*Node{}}
			node.Children = append(node.Children, next)
		}
		node = next
	}

	leafPath := name
	if current != "" {
		leafPath = current + "/" + name
	}
	node.Children = append(node.Children, &Node{Name: name, Path: leafPath, Size: count})
}
