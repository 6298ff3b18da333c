package metadata

import "fmt"

// UnknownPathError reports a discovery path with no matching node in the
// physical schema at all.
type UnknownPathError struct {
	Path string
}

func (e *UnknownPathError) Error() string {
	return fmt.Sprintf("metadata: unknown path %q", e.Path)
}

// HiddenPathError reports a discovery path that resolves to a real
// physical node, but one the visibility cascade excludes. Callers must
// render this identically to UnknownPathError — the API surface never
// reveals that a hidden resource exists.
type HiddenPathError struct {
	Path string
}

func (e *HiddenPathError) Error() string {
	return fmt.Sprintf("metadata: hidden path %q", e.Path)
}
