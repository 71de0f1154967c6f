// Package classpath enumerates the class artifacts found across a
// classpath string: an ordered list of directories and archives,
// separated by the host path separator.
package classpath

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	_ "github.com/viant/afs/zip" // registers the "zip" URL scheme afs uses to browse jar/war/ear/rar containers

	"github.com/clgraph/clgraph/filter"
)

// ContainerKind identifies the kind of source a class artifact was found in.
type ContainerKind int

const (
	KindDirectory ContainerKind = iota
	KindJar
	KindWar
	KindEar
	KindRar
)

func (k ContainerKind) String() string {
	switch k {
	case KindDirectory:
		return "dir"
	case KindJar:
		return "jar"
	case KindWar:
		return "war"
	case KindEar:
		return "ear"
	case KindRar:
		return "rar"
	default:
		return "unknown"
	}
}

// archiveSuffixes maps a recognized lower-cased archive extension to its kind.
var archiveSuffixes = map[string]ContainerKind{
	"jar": KindJar,
	"war": KindWar,
	"ear": KindEar,
	"rar": KindRar,
}

// Entry is one class artifact found while enumerating a classpath.
type Entry struct {
	ContainerKind ContainerKind
	// ContainerID is the absolute path of the directory or archive this
	// entry was found in.
	ContainerID string
	// ContainerName is the node naming scheme's display name for the
	// container (see ContainerDisplayName), the value depgraph.Tree.AddClass
	// expects as its containerID argument.
	ContainerName string
	// RelativePath is the "/"-separated path of the class within its
	// container, with the ".class" suffix removed.
	RelativePath string
	// Open returns a fresh reader over the class artifact's bytes. The
	// caller owns the returned io.ReadCloser and must close it.
	Open func() (io.ReadCloser, error)
}

// Stats summarizes one enumeration pass.
type Stats struct {
	ContainersOpened int
	ContainersSkipped int
	ClassesStreamed  int
}

// UnreadableContainerError reports that a directory or archive listed on
// the classpath could not be opened; the container is skipped and
// enumeration continues.
type UnreadableContainerError struct {
	ContainerID string
	Err         error
}

func (e *UnreadableContainerError) Error() string {
	return fmt.Sprintf("unreadable container %s: %v", e.ContainerID, e.Err)
}

func (e *UnreadableContainerError) Unwrap() error { return e.Err }

// Visitor is called once per class artifact found. Returning an error
// aborts enumeration, and Enumerate returns that error.
type Visitor func(ctx context.Context, entry Entry) error

// WarningHandler is called once per recoverable failure (an unreadable
// container or entry); enumeration continues afterward.
type WarningHandler func(warning error)

// Enumerate walks every directory and archive named on classpathStr,
// invoking visit for every *.class artifact found. Entries whose
// container name matches the filter's ignored-source rule are skipped
// before the container is ever opened.
func Enumerate(ctx context.Context, classpathStr string, filt *filter.Filter, warn WarningHandler, visit Visitor) (*Stats, error) {
	service := afs.New()
	stats := &Stats{}

	for _, entry := range splitClasspath(classpathStr) {
		absPath, err := absolutePath(entry)
		if err != nil {
			reportWarning(warn, &UnreadableContainerError{ContainerID: entry, Err: err})
			stats.ContainersSkipped++
			continue
		}

		kind, isArchive := classifyEntry(absPath)
		containerName := ContainerDisplayName(kind, absPath)
		if filt != nil && filt.IsIgnoredSource(containerName) {
			stats.ContainersSkipped++
			continue
		}

		baseURL := containerURL(kind, absPath, isArchive)

		var visitErr error
		var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
			if info.IsDir() {
				return true, nil
			}
			if !strings.HasSuffix(strings.ToLower(info.Name()), ".class") {
				return true, nil
			}
			parentURL := url.Join(baseURL, parent)
			relative := relativeClassPath(baseURL, parentURL, info.Name())

			streamed := make([]byte, 0)
			if reader != nil {
				data, readErr := io.ReadAll(reader)
				if readErr != nil {
					reportWarning(warn, &UnreadableContainerError{ContainerID: absPath, Err: readErr})
					return true, nil
				}
				streamed = data
			}

			e := Entry{
				ContainerKind: kind,
				ContainerID:   absPath,
				ContainerName: containerName,
				RelativePath:  relative,
				Open: func() (io.ReadCloser, error) {
					return io.NopCloser(bytes.NewReader(streamed)), nil
				},
			}
			stats.ClassesStreamed++
			if err := visit(ctx, e); err != nil {
				visitErr = err
				return false, err
			}
			return true, nil
		}
		err = service.Walk(ctx, baseURL, visitor)
		if visitErr != nil {
			return stats, visitErr
		}

		if err != nil {
			reportWarning(warn, &UnreadableContainerError{ContainerID: absPath, Err: err})
			stats.ContainersSkipped++
			continue
		}
		stats.ContainersOpened++
	}

	return stats, nil
}

func reportWarning(warn WarningHandler, err error) {
	if warn != nil {
		warn(err)
	}
}

func splitClasspath(classpathStr string) []string {
	var out []string
	for _, part := range strings.Split(classpathStr, string(os.PathListSeparator)) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func absolutePath(entry string) (string, error) {
	if path.IsAbs(entry) || (len(entry) > 1 && entry[1] == ':') { // handle Windows drive letters loosely
		return entry, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return path.Join(wd, entry), nil
}

func classifyEntry(absPath string) (kind ContainerKind, isArchive bool) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(absPath), "."))
	if k, ok := archiveSuffixes[ext]; ok {
		return k, true
	}
	return KindDirectory, false
}

// containerURL builds the afs URL used to browse a container: a plain
// filesystem path for directories, or a "zip://" root for jar/war/ear/rar
// archives (all zip-format containers, browsed through afs's zip storager).
func containerURL(kind ContainerKind, absPath string, isArchive bool) string {
	if isArchive {
		return "zip://" + absPath
	}
	return absPath
}

// relativeClassPath derives the "/"-separated, ".class"-stripped relative
// path of a class entry from the container's base URL and the entry's
// parent URL + file name.
func relativeClassPath(baseURL, parentURL, fileName string) string {
	full := strings.TrimSuffix(parentURL, "/") + "/" + fileName
	rel := strings.TrimPrefix(full, baseURL)
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.TrimSuffix(rel, ".class")
	rel = strings.TrimSuffix(rel, ".CLASS")
	return rel
}

// ContainerDisplayName builds the node naming scheme's top-level
// container name: "dir:<absolute-path>" for directories, or
// "<kind>ar:<name-without-suffix>_<kind>ar" for archives.
func ContainerDisplayName(kind ContainerKind, absPath string) string {
	if kind == KindDirectory {
		return "dir:" + absPath
	}
	base := path.Base(absPath)
	base = strings.TrimSuffix(base, path.Ext(base))
	return fmt.Sprintf("%sar:%s_%sar", archiveKindLetter(kind), base, archiveKindLetter(kind))
}

func archiveKindLetter(kind ContainerKind) string {
	switch kind {
	case KindJar:
		return "j"
	case KindWar:
		return "w"
	case KindEar:
		return "e"
	case KindRar:
		return "r"
	default:
		return "?"
	}
}
