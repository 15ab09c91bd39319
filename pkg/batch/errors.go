package batch

import "fmt"

// Kind classifies a failure by the scope it aborts.
type Kind int

const (
	// Validation rejects the request before any file is touched.
	Validation Kind = iota + 1
	// Decode skips one source file.
	Decode
	// Directory skips every tile of one source file.
	Directory
	// Collision skips one tile whose stale destination could not be removed.
	Collision
	// Encode skips one tile that could not be written.
	Encode
	// Publish marks a written tile that could not be uploaded.
	Publish
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Decode:
		return "decode"
	case Directory:
		return "directory"
	case Collision:
		return "collision"
	case Encode:
		return "encode"
	case Publish:
		return "publish"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a failure with its kind and the path (or argument) it concerns.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case Validation:
		if e.Path == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	case Decode:
		return fmt.Sprintf("Failed to decode image %s: %v", e.Path, e.Err)
	case Directory:
		return fmt.Sprintf("Failed to create directory %s: %v", e.Path, e.Err)
	case Collision:
		return fmt.Sprintf("Failed to remove existing image %s: %v", e.Path, e.Err)
	case Encode:
		return fmt.Sprintf("Failed to save image %s: %v", e.Path, e.Err)
	case Publish:
		return fmt.Sprintf("Failed to upload image %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
