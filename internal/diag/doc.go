// Package diag defines the diagnostic model shared by the compile stages.
//
// A Diagnostic carries a Severity, a Code with a stable string form (see
// codes.go), a short Message, the script line it points at and, for
// failures that happen while meshing, the name of the registration that
// failed. Producers emit through a Reporter; the pipeline collects into a
// Bag and the CLI renders it with internal/diagfmt.
//
// Package diag does no formatting or IO.
package diag
