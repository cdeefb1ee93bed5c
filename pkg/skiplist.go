package lsdups

import (
	"strings"
	"unsafe"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

const candidateSetLevels = 16

// candidateSet is a path-ordered set of candidates. Each member carries a
// context naming the stage or group that owns it.
type candidateSet struct {
	skiplist *zcsl.ZeroCopySkiplist[FileCandidate, string, string]
}

// newCandidateSet creates an empty set ordered by path
func newCandidateSet() *candidateSet {
	// Key extractor function - the absolute path is the key
	getKeyFromItem := func(c *FileCandidate) string {
		return c.Path
	}

	// Size function for serialization, which candidateSet never uses
	getItemSize := func(c *FileCandidate) int {
		return int(unsafe.Sizeof(*c))
	}

	cmpKey := func(a, b string) int {
		return strings.Compare(a, b)
	}

	return &candidateSet{
		skiplist: zcsl.MakeZeroCopySkiplist[FileCandidate, string, string](
			candidateSetLevels,
			getKeyFromItem,
			getItemSize,
			cmpKey,
		),
	}
}

// Insert adds c under context. It returns false when the path is already a member.
func (cs *candidateSet) Insert(c FileCandidate, context string) bool {
	if cs.Contains(c.Path) {
		return false
	}
	item := c
	return cs.skiplist.Insert(&item, context)
}

// Contains reports whether path is a member
func (cs *candidateSet) Contains(path string) bool {
	itemPtr, _ := cs.skiplist.Find(path)
	return itemPtr != nil
}

// Context returns the context recorded for path and whether it is a member
func (cs *candidateSet) Context(path string) (string, bool) {
	itemPtr, context := cs.skiplist.Find(path)
	if itemPtr == nil {
		return "", false
	}
	return context, true
}

// Len returns the number of members
func (cs *candidateSet) Len() int {
	return cs.skiplist.Length()
}

// ForEach iterates members in path order until callback returns false
func (cs *candidateSet) ForEach(callback func(FileCandidate, string) bool) {
	for current := cs.skiplist.First(); current != nil; current = current.Next() {
		if !callback(*current.Item(), current.Context()) {
			break
		}
	}
}

// Candidates returns the members in path order
func (cs *candidateSet) Candidates() []FileCandidate {
	out := make([]FileCandidate, 0, cs.Len())
	cs.ForEach(func(c FileCandidate, _ string) bool {
		out = append(out, c)
		return true
	})
	return out
}

// sortCandidates returns candidates ordered by path using a candidateSet.
// Repeated paths keep their first occurrence.
func sortCandidates(candidates []FileCandidate, context string) []FileCandidate {
	cs := newCandidateSet()
	for _, c := range candidates {
		cs.Insert(c, context)
	}
	return cs.Candidates()
}
