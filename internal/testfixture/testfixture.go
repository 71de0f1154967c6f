// Package testfixture loads txtar-archived fixture sets for classfile
// and classpath tests: a single human-readable text block unpacks into
// several named files, which keeps a synthetic classpath's hand-built
// binary class files next to each other without one file per case.
//
// txtar bodies are plain text, so each fixture file's bytes are stored
// hex-encoded; Files decodes them back to raw bytes.
package testfixture

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/tools/txtar"
)

// Archive is a parsed, hex-decoded fixture set.
type Archive struct {
	Comment string
	Files   map[string][]byte
}

// Parse unpacks a txtar-formatted string into an Archive, hex-decoding
// every file body.
func Parse(data string) (*Archive, error) {
	a := txtar.Parse([]byte(data))
	out := &Archive{
		Comment: strings.TrimSpace(string(a.Comment)),
		Files:   make(map[string][]byte, len(a.Files)),
	}
	for _, f := range a.Files {
		raw, err := hex.DecodeString(strings.TrimSpace(string(f.Data)))
		if err != nil {
			return nil, fmt.Errorf("testfixture: file %s: %w", f.Name, err)
		}
		out.Files[f.Name] = raw
	}
	return out, nil
}

// Format re-encodes files as a txtar-formatted string, the inverse of
// Parse; used by tests that want to generate a fixture file once and
// commit its text form.
func Format(comment string, files map[string][]byte) string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	a := &txtar.Archive{Comment: []byte(comment)}
	for _, name := range names {
		a.Files = append(a.Files, txtar.File{
			Name: name,
			Data: []byte(hex.EncodeToString(files[name]) + "\n"),
		})
	}
	return string(txtar.Format(a))
}
