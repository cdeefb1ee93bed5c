package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"
	"gopkg.in/yaml.v2"

	lsdups "github.com/mattkeenan/lsdups/pkg"
)

// shortDigestLen is the number of hex digits shown per group in the human report
const shortDigestLen = 12

// reportOptions controls how a result is rendered
type reportOptions struct {
	format  string
	color   bool
	mime    bool
	verbose int
}

// writeReport renders result to w in the requested format
func writeReport(w io.Writer, result *lsdups.Result, opts reportOptions) error {
	switch opts.format {
	case "json":
		return writeJSON(w, result)
	case "yaml":
		return writeYAML(w, result)
	case "fdupes":
		return writeFdupes(w, result)
	case "human", "":
		return writeHuman(w, result, opts)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.format)
	}
}

func writeJSON(w io.Writer, result *lsdups.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func writeYAML(w io.Writer, result *lsdups.Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode yaml report: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// writeFdupes prints one path per line with a blank line after each group
func writeFdupes(w io.Writer, result *lsdups.Result) error {
	for _, group := range result.Groups {
		for _, path := range group.Paths {
			if _, err := fmt.Fprintln(w, path); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// writeHuman prints the summary followed by every group
func writeHuman(w io.Writer, result *lsdups.Result, opts reportOptions) error {
	header := color.New(color.FgYellow, color.Bold)
	rule := color.New(color.FgHiBlack)
	sizeCol := color.New(color.FgCyan)
	if opts.color {
		header.EnableColor()
		rule.EnableColor()
		sizeCol.EnableColor()
	} else {
		header.DisableColor()
		rule.DisableColor()
		sizeCol.DisableColor()
	}

	stats := result.Stats
	var b strings.Builder
	fmt.Fprintf(&b, "found %d files in %d ms\n\n", stats.Candidates, stats.Elapsed.Milliseconds())
	fmt.Fprintf(&b, "total size for %d files is         %.3f MB\n", stats.Candidates, lsdups.ToMB(stats.CandidateBytes))
	fmt.Fprintf(&b, "total size for duplicated files is %.3f MB\n", lsdups.ToMB(stats.DuplicateBytes))
	if opts.verbose >= 1 {
		fmt.Fprintf(&b, "reclaimable by removing copies is  %.3f MB\n", lsdups.ToMB(stats.ReclaimableBytes))
		fmt.Fprintf(&b, "files read: %d, bytes read: %d\n", stats.Digest.FilesOpened, stats.Digest.BytesRead)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	for _, group := range result.Groups {
		digest := group.Digest
		if len(digest) > shortDigestLen {
			digest = digest[:shortDigestLen]
		}

		title := fmt.Sprintf("%s:%s * %d, totalSize: %.3f", group.Algorithm, digest, group.Count(),
			lsdups.ToMB(group.Size*uint64(group.Count())))
		if opts.mime {
			title += "  " + detectMIME(group.Representative())
		}
		if _, err := header.Fprintf(w, "\n%s\n", title); err != nil {
			return err
		}
		if _, err := rule.Fprintln(w, strings.Repeat("-", 40)); err != nil {
			return err
		}
		for _, path := range group.Paths {
			if _, err := sizeCol.Fprintf(w, "%6.3f", lsdups.ToMB(group.Size)); err != nil {
				return err
			}
			line := "   " + path
			// A link and its target share one inode; removing the target breaks the link
			if target, ok := symlinkTarget(path); ok {
				line += "  -> " + target + " (symlink)"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}

// writeDiagnostics prints skipped entries at verbose >= 1, or a count otherwise
func writeDiagnostics(w io.Writer, diags []lsdups.Diagnostic, verbose int) {
	if len(diags) == 0 {
		return
	}
	if verbose < 1 {
		fmt.Fprintf(w, "lsdups: %d entries skipped (use -v to list them)\n", len(diags))
		return
	}
	for _, d := range diags {
		fmt.Fprintf(w, "skipped %s: %s\n", d.Path, d.Reason)
	}
}

// detectMIME returns the content type of path or "unknown"
func detectMIME(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "unknown"
	}
	return mtype.String()
}

// symlinkTarget returns the link text when path is a symbolic link
func symlinkTarget(path string) (string, bool) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return "", false
	}
	target, err := os.Readlink(path)
	if err != nil {
		return "", false
	}
	return target, true
}
