package export

import (
	"encoding/json"
	"io"
)

// WriteJSON renders g using the standard library's encoding/json.
//
// No third-party JSON library appears in the retrieved corpus, and the
// standard encoder is the idiomatic default for a plain struct shape
// like Graph.
func WriteJSON(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}
