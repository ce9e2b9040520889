package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"boxy/internal/diag"
	"boxy/internal/source"
)

type palette struct {
	err, warn, info, code, path, gutter, note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan),
		code:   color.New(color.Bold),
		path:   color.New(color.FgWhite, color.Bold),
		gutter: color.New(color.FgBlue),
		note:   color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.path, p.gutter, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty writes diagnostics for a terminal:
//
//	scene.boxy:3: ERROR SCR1002: message
//	   3 | bad = Box(1) | nosuch(2)
//
// The bag is expected to be sorted.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		loc := makeLocation(d.Primary, fs, opts.PathMode)
		var head strings.Builder
		switch {
		case loc.File != "":
			head.WriteString(p.path.Sprintf("%s:%d:", loc.File, loc.Line))
			head.WriteByte(' ')
		case loc.Line > 0:
			head.WriteString(p.path.Sprintf("line %d:", loc.Line))
			head.WriteByte(' ')
		}
		head.WriteString(p.severity(d.Severity).Sprint(d.Severity.String()))
		head.WriteByte(' ')
		head.WriteString(p.code.Sprint(d.Code.ID()))
		if d.Object != "" {
			fmt.Fprintf(&head, " (%s)", d.Object)
		}
		fmt.Fprintf(w, "%s: %s\n", head.String(), d.Message)

		if fs != nil && d.Primary.IsValid() {
			if f := fs.Get(d.Primary.File); f != nil {
				writeContext(w, p, f, d.Primary.Line, opts.Context)
			}
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				nl := makeLocation(n.Pos, fs, opts.PathMode)
				if nl.File != "" {
					fmt.Fprintf(w, "  %s %s:%d: %s\n", p.note.Sprint("note:"), nl.File, nl.Line, n.Msg)
				} else {
					fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("note:"), n.Msg)
				}
			}
		}
	}
}

func writeContext(w io.Writer, p palette, f *source.File, line uint32, context int) {
	first := int(line) - context
	if first < 1 {
		first = 1
	}
	last := min(int(line)+context, f.LineCount())
	width := len(fmt.Sprint(last))
	for n := first; n <= last; n++ {
		text := f.GetLine(uint32(n)) // #nosec G115 -- bounded by LineCount
		marker := " "
		if n == int(line) {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %s %s\n", marker, p.gutter.Sprintf("%*d |", width, n), text)
	}
}
