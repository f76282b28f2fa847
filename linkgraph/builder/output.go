package builder

import (
	"encoding/json"
	"io"
	"os"

	"golang.org/x/xerrors"

	"sitegraph/linkgraph/graph"
)

// DefaultOutputFile is the file name the front end loads the graph from.
const DefaultOutputFile = "graph_data.json"

// WriteJSON serializes g as UTF-8 JSON indented with two spaces.
func WriteJSON(w io.Writer, g *graph.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(g); err != nil {
		return xerrors.Errorf("encode graph: %w", err)
	}
	return nil
}

// WriteFile writes g to the file at path, replacing any previous content.
func WriteFile(path string, g *graph.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.Errorf("write graph: %w", err)
	}
	if err = WriteJSON(f, g); err != nil {
		_ = f.Close()
		return xerrors.Errorf("write graph to %q: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return xerrors.Errorf("write graph to %q: %w", path, err)
	}
	return nil
}
