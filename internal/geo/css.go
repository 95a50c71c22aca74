package geo

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	rotateFn   = regexp.MustCompile(`\s?rotate\([^)]*\)`)
	whitespace = regexp.MustCompile(`\s+`)
)

// ComposeRotation appends a rotate() to a CSS transform produced by the map
// renderer, replacing any rotate() appended on a previous frame
func ComposeRotation(base string, deg float64) string {
	stripped := strings.TrimSpace(whitespace.ReplaceAllString(rotateFn.ReplaceAllString(base, ""), " "))
	rot := "rotate(" + strconv.FormatFloat(deg, 'f', -1, 64) + "deg)"
	if stripped == "" {
		return rot
	}
	return stripped + " " + rot
}
