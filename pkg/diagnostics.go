package lsdups

import (
	"sort"
)

// Diagnostic is a non-fatal event recorded for an entry that could not be compared
type Diagnostic struct {
	Path   string    `json:"path" yaml:"path"`
	Reason string    `json:"reason" yaml:"reason"`
	Kind   ErrorKind `json:"kind" yaml:"kind"`
}

func (d Diagnostic) String() string {
	return string(d.Kind) + ": " + d.Path + ": " + d.Reason
}

// diagnosticFromError converts a ScanError (or any error) into a Diagnostic of the given kind
func diagnosticFromError(kind ErrorKind, path string, err error) Diagnostic {
	return Diagnostic{Path: path, Reason: err.Error(), Kind: kind}
}

// sortDiagnostics orders diagnostics by path then reason so output is stable across runs
func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Path != diags[j].Path {
			return diags[i].Path < diags[j].Path
		}
		return diags[i].Reason < diags[j].Reason
	})
}
