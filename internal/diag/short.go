package diag

import (
	"fmt"
	"sort"
	"strings"

	"qlower/internal/source"
)

type shortDiagnostic struct {
	pos      source.Position
	severity string
	code     string
	message  string
}

// FormatShort renders one "path:line:col: SEVERITY CODE: message" line per
// diagnostic, sorted by position. Notes follow their diagnostic when
// includeNotes is set.
func FormatShort(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	rendered := make([]shortDiagnostic, 0, len(diags))
	for _, d := range diags {
		rendered = append(rendered, shortDiagnostic{
			pos:      fs.Position(d.Primary),
			severity: d.Severity.String(),
			code:     d.Code.ID(),
			message:  d.Message,
		})
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			rendered = append(rendered, shortDiagnostic{
				pos:      fs.Position(n.Span),
				severity: "NOTE",
				code:     d.Code.ID(),
				message:  n.Msg,
			})
		}
	}
	sort.SliceStable(rendered, func(i, j int) bool {
		a, b := rendered[i].pos, rendered[j].pos
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})

	var sb strings.Builder
	for _, r := range rendered {
		fmt.Fprintf(&sb, "%s: %s %s: %s\n", r.pos, r.severity, r.code, r.message)
	}
	return sb.String()
}
