package target

import (
	"slices"
	"sort"
)

// globalExclusions lists packages installed in the ambient build environment
// that neither executable needs at runtime. ML, data-science, documentation,
// crypto and test tooling dominate bundle size when pulled in accidentally.
// The list is immutable; per-target deltas live on the Target itself.
var globalExclusions = []string{
	"torch",
	"torchvision",
	"tensorflow",
	"tensorboard",
	"matplotlib",
	"pandas",
	"scipy",
	"sympy",
	"numba",
	"sklearn",
	"skimage",
	"IPython",
	"jupyter",
	"notebook",
	"sphinx",
	"docutils",
	"cryptography",
	"OpenSSL",
	"pytest",
	"unittest2",
	"setuptools._distutils",
	"tkinter",
}

// Exclusions resolves the exclusion set for a target: the global list plus the
// target's own additions, sorted and deduplicated. The result is a fresh slice
// on every call, so callers may not mutate shared state through it.
//
// The resolver does not consult HiddenImports: declaring a required import that
// is also excluded is a build-descriptor bug, and the assembler fails loudly on
// it instead of silently dropping either side.
func Exclusions(t Target) []string {
	merged := make([]string, 0, len(globalExclusions)+len(t.ExtraExclusions))
	merged = append(merged, globalExclusions...)
	merged = append(merged, t.ExtraExclusions...)

	sort.Strings(merged)

	return slices.Compact(merged)
}
