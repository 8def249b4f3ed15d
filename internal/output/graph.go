package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/prchanges/internal/changes"
	"github.com/dshills/prchanges/internal/commitgraph"
)

type graphNode struct {
	ID      string   `json:"id"`
	Parents []string `json:"parents"`
	Subject string   `json:"subject"`
	Head    bool     `json:"head,omitempty"`
}

// WriteGraph prints the commits of b in post-order, oldest first, with the
// parents each one has inside the request. Format is "text" or "json".
func WriteGraph(w io.Writer, b *changes.Bundle, format string) error {
	sets := b.Commits()
	nodes := make([]graphNode, len(sets))
	for i, s := range sets {
		nodes[i] = graphNode{
			ID:      s.Commit.ID,
			Parents: s.Parents,
			Subject: s.Commit.Subject(),
			Head:    i == len(sets)-1,
		}
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(nodes, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "text", "":
	default:
		return fmt.Errorf("%w for graph: %s", ErrUnsupportedFormat, format)
	}

	ew := &errWriter{w: w}
	for i, n := range nodes {
		mark := "*"
		if len(n.Parents) > 1 {
			mark = "M"
		}
		line := fmt.Sprintf("%3d %s %s", i+1, mark, commitgraph.ShortID(n.ID))
		if len(n.Parents) > 0 {
			short := make([]string, len(n.Parents))
			for k, p := range n.Parents {
				short[k] = commitgraph.ShortID(p)
			}
			line += " <- " + strings.Join(short, ", ")
		}
		if n.Subject != "" {
			line += "  " + n.Subject
		}
		if n.Head {
			line += "  (head)"
		}
		ew.println(line)
	}
	return ew.err
}
