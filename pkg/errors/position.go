package errors

import "github.com/nooga/cadence/pkg/source"

// Position is a location in program text. Line and Column are 1-based,
// StartPos/EndPos are byte offsets.
type Position struct {
	Line     int
	Column   int
	StartPos int
	EndPos   int
	Source   *source.SourceFile
}
