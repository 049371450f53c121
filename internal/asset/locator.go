// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package asset

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// labelSep separates the file path from the sub-asset label in a locator.
const labelSep = "#"

// Locator addresses an asset: a path relative to the asset root plus an
// optional label naming a sub-asset inside the file ("Scene0", "Animation1").
type Locator struct {
	Path  string
	Label string
}

// ParseLocator splits "path#Label" at the first separator.
func ParseLocator(s string) Locator {
	path, label, _ := strings.Cut(s, labelSep)
	return Locator{Path: path, Label: label}
}

// String renders the locator back to its "path#Label" form.
func (l Locator) String() string {
	if l.Label == "" {
		return l.Path
	}
	return l.Path + labelSep + l.Label
}

// LabelIndex parses labels of the form prefix+N, e.g. LabelIndex("Scene") on
// "Scene2" returns 2.
func (l Locator) LabelIndex(prefix string) (int, error) {
	rest, ok := strings.CutPrefix(l.Label, prefix)
	if !ok || rest == "" {
		return 0, oops.Code(CodeBadLabel).
			With("locator", l.String()).
			With("expected_prefix", prefix).
			Errorf("label %q is not a %s label", l.Label, prefix)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, oops.Code(CodeBadLabel).
			With("locator", l.String()).
			Errorf("label %q has no valid index", l.Label)
	}
	return n, nil
}
