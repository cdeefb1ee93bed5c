package lsdups

import (
	"sort"
)

// SizeBucket holds candidates sharing one exact size
type SizeBucket struct {
	Size    uint64
	Members []FileCandidate
}

// SizeBucketer groups candidates by exact size. It is single-writer; the
// engine feeds it from one goroutine.
type SizeBucketer struct {
	buckets map[uint64][]FileCandidate
	count   int
}

// NewSizeBucketer creates an empty bucketer
func NewSizeBucketer() *SizeBucketer {
	return &SizeBucketer{buckets: make(map[uint64][]FileCandidate)}
}

// Insert adds a candidate to its size bucket
func (sb *SizeBucketer) Insert(c FileCandidate) {
	sb.buckets[c.Size] = append(sb.buckets[c.Size], c)
	sb.count++
}

// Len returns the number of candidates inserted since the last drain
func (sb *SizeBucketer) Len() int {
	return sb.count
}

// DrainMultiMemberBuckets returns every bucket with two or more members,
// largest size first, and empties the bucketer. Singleton buckets are dropped.
func (sb *SizeBucketer) DrainMultiMemberBuckets() []SizeBucket {
	var result []SizeBucket
	for size, members := range sb.buckets {
		if len(members) < 2 {
			continue
		}
		result = append(result, SizeBucket{Size: size, Members: members})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Size > result[j].Size
	})

	sb.buckets = make(map[uint64][]FileCandidate)
	sb.count = 0
	return result
}
