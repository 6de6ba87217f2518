package semantic

import (
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

const defaultMediaType = "application/octet-stream"

// Resource describes a local file served as a response body.
type Resource struct {
	Path      string
	Name      string
	Size      uint64
	MediaType string
}

// StatResource describes the regular file at path.
// The media type is detected from the file contents.
func StatResource(path string) (Resource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Resource{}, errors.Wrap(err, "stat resource")
	}
	if !info.Mode().IsRegular() {
		return Resource{}, errors.Errorf("not a regular file: %s", path)
	}

	mediaType := defaultMediaType
	if mtype, err := mimetype.DetectFile(path); err == nil {
		mediaType = mtype.String()
	}

	return Resource{
		Path:      path,
		Name:      filepath.Base(path),
		Size:      uint64(info.Size()),
		MediaType: mediaType,
	}, nil
}
