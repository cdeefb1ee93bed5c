// Package lsdups finds groups of byte-identical files under a directory tree.
//
// A scan runs as a pipeline: a Walker streams the regular files accepted by a
// PathFilter, a SizeBucketer groups them by exact size, and a
// DuplicateResolver narrows each multi-member bucket with a partial digest of
// the leading bytes, then a full digest, then (optionally) a byte-for-byte
// comparison over memory mappings. Only files that share a size and a partial
// digest are ever read in full.
//
// # Core API
//
//	engine, err := lsdups.NewEngine(lsdups.DefaultConfig(), logger)
//	result, err := engine.Scan(ctx, lsdups.ScanConfig{
//		Root:           "/srv/photos",
//		IncludePattern: "*.jpg",
//		MinSize:        1024,
//	})
//	for _, group := range result.Groups {
//		fmt.Println(group.Digest, group.Paths)
//	}
//
// Patterns are shell globs matched against the file name. A pattern prefixed
// with "re:" is a regular expression anchored at the end of the name. A file
// matching the skip pattern is always rejected, even when it also matches the
// include pattern.
//
// # Configuration
//
// Tuning (hash algorithm, partial digest size, worker count, verification)
// lives in an INI file loaded with LoadConfig; LoadConfig("") returns the
// defaults. Nothing is persisted between scans.
//
// # Errors
//
// Invalid input fails the scan with a *ScanError of KindConfig before any
// traversal. Entries that cannot be read are reported as Diagnostics on the
// Result and never abort the scan. A cancelled context aborts the scan;
// IsCanceled reports that case.
package lsdups
