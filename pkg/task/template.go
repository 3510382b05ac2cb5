package task

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	errs "imgharvest/pkg/errors"
)

var markerRe = regexp.MustCompile(`\{([^{}]*)\}`)

// SequenceTemplate is a URL with one numeric slot
type SequenceTemplate struct {
	Prefix string
	Suffix string
	Lower  int
	// Width is the zero-padded print width, 0 for unpadded numbers.
	Width int
}

// ParseSequenceTemplate reads a URL containing exactly one {digits}
// marker. The digits give the lower bound; a leading zero fixes the width.
func ParseSequenceTemplate(raw string) (SequenceTemplate, error) {
	locs := markerRe.FindAllStringSubmatchIndex(raw, -1)
	switch {
	case len(locs) == 0:
		return SequenceTemplate{}, errs.Bounds("parse template", "no {digits} marker in %q", raw)
	case len(locs) > 1:
		return SequenceTemplate{}, errs.Bounds("parse template", "%d markers in %q, want exactly one", len(locs), raw)
	}

	loc := locs[0]
	digits := raw[loc[2]:loc[3]]
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return SequenceTemplate{}, errs.Bounds("parse template", "marker {%s} is not a number", digits)
	}
	lower, err := strconv.Atoi(digits)
	if err != nil {
		return SequenceTemplate{}, errs.Bounds("parse template", "marker {%s}: %v", digits, err)
	}

	tpl := SequenceTemplate{
		Prefix: raw[:loc[0]],
		Suffix: raw[loc[1]:],
		Lower:  lower,
	}
	if strings.ContainsAny(tpl.Prefix+tpl.Suffix, "{}") {
		return SequenceTemplate{}, errs.Bounds("parse template", "unbalanced braces in %q", raw)
	}
	if len(digits) > 1 && digits[0] == '0' {
		tpl.Width = len(digits)
	}
	return tpl, nil
}

// Format renders the number i at the template's width
func (t SequenceTemplate) Format(i int) string {
	if t.Width > 0 {
		return fmt.Sprintf("%0*d", t.Width, i)
	}
	return strconv.Itoa(i)
}

// URL builds the link for index i
func (t SequenceTemplate) URL(i int) string {
	return t.Prefix + t.Format(i) + t.Suffix
}

// String shows the template with its lower bound as the marker
func (t SequenceTemplate) String() string {
	return t.Prefix + "{" + t.Format(t.Lower) + "}" + t.Suffix
}
