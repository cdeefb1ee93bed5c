package lsdups

// FileCandidate is a regular file that passed the PathFilter
type FileCandidate struct {
	Path string // absolute path
	Size uint64
}

// IsEmpty reports whether the candidate has no content to read
func (c FileCandidate) IsEmpty() bool {
	return c.Size == 0
}
