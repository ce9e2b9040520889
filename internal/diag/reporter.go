package diag

import "boxy/internal/source"

// Reporter receives diagnostics from compile stages.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes into a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}

// ReportError is a shortcut for SevError diagnostics.
func ReportError(r Reporter, code Code, primary source.Pos, msg string) {
	if r != nil {
		r.Report(NewError(code, primary, msg))
	}
}

// ReportWarning is a shortcut for SevWarning diagnostics.
func ReportWarning(r Reporter, code Code, primary source.Pos, msg string) {
	if r != nil {
		r.Report(New(SevWarning, code, primary, msg))
	}
}
