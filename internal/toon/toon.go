// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// hull reports, plus the plain list formats.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/classhull/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a HullReport into TOON format.
func Encode(rep *model.HullReport) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("start: %s", encodeValue(rep.Start)))
	parts = append(parts, fmt.Sprintf("stats{references,excluded,unresolved}: %d,%d,%d",
		rep.Stats.References, rep.Stats.Excluded, rep.Stats.Unresolved))

	var classRows [][]string
	for i := range rep.Classes {
		c := &rep.Classes[i]
		classRows = append(classRows, []string{
			c.Name,
			c.Source,
			fmt.Sprintf("%.4f", c.Rank),
		})
	}
	parts = append(parts, formatTabular("classes", []string{"name", "source", "rank"}, classRows))

	var depRows [][]string
	for i := range rep.Dependencies {
		d := &rep.Dependencies[i]
		depRows = append(depRows, []string{d.Source, d.Target})
	}
	parts = append(parts, formatTabular("dependencies", []string{"source", "target"}, depRows))

	return strings.Join(parts, "\n")
}

// EncodeSizes renders per-class hull sizes as a TOON table.
func EncodeSizes(sizes []model.ClassSize) string {
	rows := make([][]string, len(sizes))
	for i, s := range sizes {
		rows[i] = []string{s.Name, strconv.Itoa(s.Hull)}
	}
	return formatTabular("classes", []string{"name", "hull"}, rows)
}

// List renders class names the way java.util.List prints: "[a.A, a.B]".
func List(rep *model.HullReport) string {
	return "[" + strings.Join(names(rep), ", ") + "]"
}

// Names renders one class name per line.
func Names(rep *model.HullReport) string {
	return strings.Join(names(rep), "\n")
}

func names(rep *model.HullReport) []string {
	out := make([]string, len(rep.Classes))
	for i := range rep.Classes {
		out[i] = rep.Classes[i].Name
	}
	return out
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
