package storage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Node kinds.
const (
	NodeFile      = "file"
	NodeDirectory = "directory"
)

// Node is one entry of a directory listing. Objects is only populated for
// directories.
type Node struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Objects []Node `json:"objects,omitempty"`
}

// IsDir reports whether the node is a directory.
func (n Node) IsDir() bool {
	return n.Type == NodeDirectory
}

// MarshalJSON always emits "objects" for directories, even when empty.
func (n Node) MarshalJSON() ([]byte, error) {
	if !n.IsDir() {
		return json.Marshal(struct {
			Type string `json:"type"`
			Name string `json:"name"`
		}{n.Type, n.Name})
	}
	objects := n.Objects
	if objects == nil {
		objects = []Node{}
	}
	return json.Marshal(struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Objects []Node `json:"objects"`
	}{n.Type, n.Name, objects})
}

// buildListing walks dir depth-first and returns its entries in
// enumeration order. Entries are stat'ed, so symlinks are followed.
func buildListing(dir string, logger *slog.Logger) ([]Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(entries))
	for _, e := range entries {
		logger.Debug("found file object", slog.String("name", e.Name()), slog.String("dir", dir))
		p := filepath.Join(dir, e.Name())
		info, err := os.Stat(p)
		if err != nil {
			// Dangling symlink.
			if errors.Is(err, fs.ErrNotExist) {
				out = append(out, Node{Type: NodeFile, Name: e.Name()})
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, Node{Type: NodeFile, Name: e.Name()})
			continue
		}
		children, err := buildListing(p, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, Node{Type: NodeDirectory, Name: e.Name(), Objects: children})
	}
	return out, nil
}

// FilePaths flattens a listing into slash-separated file paths relative to
// the listed directory, prefixed with dir when non-empty.
func FilePaths(dir string, nodes []Node) []string {
	var out []string
	for _, n := range nodes {
		p := n.Name
		if dir != "" {
			p = dir + "/" + n.Name
		}
		if n.IsDir() {
			out = append(out, FilePaths(p, n.Objects)...)
			continue
		}
		if IsTemp(n.Name) {
			continue
		}
		out = append(out, p)
	}
	return out
}
