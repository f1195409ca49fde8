package catalog

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Resource is a single cataloged filesystem entry. The catalog never
// interprets a Resource's fields directly; it only reads named attributes
// off it at learn time, one per installed index. The embedder supplies the
// concrete type via a ResourceFactory.
type Resource interface {
	// Path returns the absolute path this resource was built from.
	Path() string

	// Attr returns the value of a named attribute, for an index of the
	// same name to learn. ok is false if the resource has no such
	// attribute, in which case the catalog logs a warning and skips that
	// index for this rid.
	Attr(name string) (value any, ok bool)
}

// ResourceFactory builds a Resource from a single absolute path. It is
// called once when a path is first seen, and again whenever the path's
// modification time changes.
type ResourceFactory func(path string) (Resource, error)

// Fielder is an optional Resource capability: a Resource that can list its
// own attribute names, for a reporting tool to offer a "fields" listing
// without hardcoding a concrete Resource type.
type Fielder interface {
	Fields() []string
}

// FileResource is the default Resource implementation, exposing the
// attributes a plain filesystem crawl can always provide. Embedders that
// need domain-specific attributes (an owning team, a content hash, a
// parsed front-matter field) supply their own Resource and ResourceFactory
// instead.
type FileResource struct {
	path    string
	name    string
	ext     string
	size    int64
	isDir   bool
	modTime time.Time
	mode    os.FileMode
}

// NewFileResource stats path and builds the default Resource for it.
func NewFileResource(path string) (Resource, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	return &FileResource{
		path:    path,
		name:    filepath.Base(path),
		ext:     filepath.Ext(path),
		size:    info.Size(),
		isDir:   info.IsDir(),
		modTime: info.ModTime(),
		mode:    info.Mode(),
	}, nil
}

func (r *FileResource) Path() string { return r.path }

func (r *FileResource) Attr(name string) (any, bool) {
	switch name {
	case "path":
		return r.path, true
	case "name":
		return r.name, true
	case "ext":
		return r.ext, true
	case "size":
		return r.size, true
	case "isdir":
		// returned as a string, not a bool, so the default wiring can learn
		// it into an Enumeration index (allowed values "true"/"false").
		return strconv.FormatBool(r.isDir), true
	case "modtime":
		return r.modTime, true
	case "mode":
		return r.mode.String(), true
	default:
		return nil, false
	}
}

// Fields lists the attribute names FileResource exposes, in the order
// cli.py's "fields" listing would have shown them (alphabetical).
func (r *FileResource) Fields() []string {
	return []string{"ext", "isdir", "mode", "modtime", "name", "path", "size"}
}
