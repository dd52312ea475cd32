package compiler

import (
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Codes carried by LoadError. Validation codes (E1xx, E2xx) live with
// ValidationError.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002" // model directory could not be listed
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004" // CUE instance did not load
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006" // CUE instance did not evaluate
	ErrCodeNoModel     = "E007" // package has no top-level model field
	ErrCodeTableFailed = "E008"
)

// LoadError reports a model that could not be located or read.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	return withPos(e.Pos, e.Code+": "+e.Message)
}

// CompileError reports a model field whose value cannot be turned into
// the engine's representation.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	return withPos(e.Pos, e.Field+": "+e.Message)
}

// withPos prefixes msg with file:line:col when pos is known.
func withPos(pos token.Pos, msg string) string {
	if !pos.IsValid() {
		return msg
	}
	return fmt.Sprintf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), msg)
}

// fromCUE turns the first positioned CUE error into a CompileError.
// Errors without a position are returned unchanged.
func fromCUE(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range cueerrors.Errors(err) {
		if ps := cueerrors.Positions(e); len(ps) > 0 {
			return &CompileError{Field: "cue", Message: e.Error(), Pos: ps[0]}
		}
	}
	return err
}
