package media

import (
	"path"
	"strings"
)

// MiB is the byte multiplier applied to Constraints.MaxSizeInMB
const MiB = 1 << 20

// DefaultImageTypes are accepted when a field does not list its own types
var DefaultImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Constraints configure a single upload invocation
type Constraints struct {
	Bucket       string   `json:"bucket"`
	Folder       string   `json:"folder"`
	MaxSizeInMB  int      `json:"max_size_in_mb"`
	AllowedTypes []string `json:"allowed_types"`
}

// MaxBytes returns the size limit in bytes. Zero means unlimited.
func (c Constraints) MaxBytes() int64 {
	if c.MaxSizeInMB <= 0 {
		return 0
	}
	return int64(c.MaxSizeInMB) * MiB
}

// Accepts reports whether the MIME type is in AllowedTypes. Parameters such as
// "; charset=" are ignored and comparison is case-insensitive.
func (c Constraints) Accepts(contentType string) bool {
	allowed := c.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultImageTypes
	}
	mt := normalizeType(contentType)
	if mt == "" {
		return false
	}
	for _, a := range allowed {
		if normalizeType(a) == mt {
			return true
		}
	}
	return false
}

// ObjectPath joins the folder prefix and the generated name
func (c Constraints) ObjectPath(name string) string {
	folder := strings.Trim(c.Folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

func normalizeType(contentType string) string {
	mt := contentType
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
