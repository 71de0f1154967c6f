package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteDOT renders g as a Graphviz "digraph" source.
//
// No third-party Graphviz library appears anywhere in the retrieved
// corpus; DOT's grammar is simple enough that hand-formatting strings
// is the idiomatic choice here, not a gap the corpus fills with a
// dependency.
func WriteDOT(w io.Writer, g *Graph, name string) error {
	if _, err := fmt.Fprintf(w, "digraph %s {\n", dotQuote(name)); err != nil {
		return err
	}

	nodes := append([]GraphNode(nil), g.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, n := range nodes {
		if _, err := fmt.Fprintf(w, "  %s [label=%s];\n", n.ID, dotQuote(n.Name)); err != nil {
			return err
		}
	}

	edges := append([]GraphEdge(nil), g.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	for _, e := range edges {
		if _, err := fmt.Fprintf(w, "  %s -> %s;\n", e.Source, e.Target); err != nil {
			return err
		}
	}

	_, err := fmt.Fprint(w, "}\n")
	return err
}

func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
