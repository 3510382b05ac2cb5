package models

import (
	"strings"
)

// Candidate is an image found by a reverse-image search
type Candidate struct {
	URL             string `json:"url"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	ParentDirectory string `json:"parent_directory"`
	Filename        string `json:"filename"`
	Extension       string `json:"extension"`
	// ByteSize is filled in after a download attempt, zero until then.
	ByteSize int64 `json:"byte_size,omitempty"`
}

// NewCandidate splits rawURL into directory, filename and extension
func NewCandidate(rawURL string, width, height int) Candidate {
	parent, name, ext := SplitURLFilename(rawURL)
	return Candidate{
		URL:             rawURL,
		Width:           width,
		Height:          height,
		ParentDirectory: parent,
		Filename:        name,
		Extension:       ext,
	}
}

// LargerThan reports whether c strictly exceeds other in both dimensions.
// Equal or mixed dimensions are not larger, so this is not a total order.
func (c Candidate) LargerThan(other Candidate) bool {
	return c.Width > other.Width && c.Height > other.Height
}

// Exceeds reports whether c is larger than width x height in both
// dimensions and by at least ratio in each of them.
func (c Candidate) Exceeds(width, height int, ratio float64) bool {
	if c.Width <= width || c.Height <= height {
		return false
	}
	return float64(c.Width) >= ratio*float64(width) && float64(c.Height) >= ratio*float64(height)
}

// Area returns width times height
func (c Candidate) Area() int64 {
	return int64(c.Width) * int64(c.Height)
}

// SourceImage describes the local image a search was run for
type SourceImage struct {
	Path     string `json:"path"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	ByteSize int64  `json:"byte_size"`
}

// LinkTemplate is the text around one digit run of a filename.
// Two templates are the same template when their prefixes match.
type LinkTemplate struct {
	Prefix string
	Suffix string
}

// Key identifies the template
func (t LinkTemplate) Key() string {
	return t.Prefix
}

// Format rebuilds a link for one index
func (t LinkTemplate) Format(digits string) string {
	return t.Prefix + digits + t.Suffix
}

// SplitURLFilename returns the directory part of rawURL (with trailing
// slash), the last path segment without extension and the extension
// without its dot. Query strings and fragments are ignored.
func SplitURLFilename(rawURL string) (parent, name, ext string) {
	clean := rawURL
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}

	name = clean
	if i := strings.LastIndex(clean, "/"); i >= 0 {
		parent = clean[:i+1]
		name = clean[i+1:]
	}

	if i := strings.LastIndex(name, "."); i > 0 {
		ext = name[i+1:]
		name = name[:i]
	}
	return parent, name, ext
}
