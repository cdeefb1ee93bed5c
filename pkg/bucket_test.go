package lsdups

import (
	"testing"
)

func TestSizeBucketerDrain(t *testing.T) {
	sb := NewSizeBucketer()
	sb.Insert(FileCandidate{Path: "/a", Size: 5})
	sb.Insert(FileCandidate{Path: "/b", Size: 5})
	sb.Insert(FileCandidate{Path: "/c", Size: 7})
	sb.Insert(FileCandidate{Path: "/d", Size: 100})
	sb.Insert(FileCandidate{Path: "/e", Size: 100})
	sb.Insert(FileCandidate{Path: "/f", Size: 100})
	sb.Insert(FileCandidate{Path: "/g", Size: 0})
	sb.Insert(FileCandidate{Path: "/h", Size: 0})

	if sb.Len() != 8 {
		t.Errorf("Expected 8 candidates, got %d", sb.Len())
	}

	buckets := sb.DrainMultiMemberBuckets()
	if len(buckets) != 3 {
		t.Fatalf("Expected 3 multi-member buckets, got %d: %+v", len(buckets), buckets)
	}

	// Largest size first; the singleton size 7 is pruned
	expectedSizes := []uint64{100, 5, 0}
	expectedMembers := []int{3, 2, 2}
	for i, bucket := range buckets {
		if bucket.Size != expectedSizes[i] {
			t.Errorf("Bucket %d size = %d, expected %d", i, bucket.Size, expectedSizes[i])
		}
		if len(bucket.Members) != expectedMembers[i] {
			t.Errorf("Bucket %d has %d members, expected %d", i, len(bucket.Members), expectedMembers[i])
		}
		for _, m := range bucket.Members {
			if m.Size != bucket.Size {
				t.Errorf("Member %s of size %d in bucket %d", m.Path, m.Size, bucket.Size)
			}
		}
	}

	if sb.Len() != 0 {
		t.Errorf("Expected empty bucketer after drain, got %d", sb.Len())
	}
	if again := sb.DrainMultiMemberBuckets(); len(again) != 0 {
		t.Errorf("Second drain should be empty, got %d buckets", len(again))
	}
}

func TestSizeBucketerAllUnique(t *testing.T) {
	sb := NewSizeBucketer()
	for i := uint64(1); i <= 10; i++ {
		sb.Insert(FileCandidate{Path: "/f", Size: i})
	}
	if buckets := sb.DrainMultiMemberBuckets(); len(buckets) != 0 {
		t.Errorf("Distinct sizes should produce no buckets, got %d", len(buckets))
	}
}
