// Package spirq is the public entry point for the shader reflection
// engine: a thin wrapper over package reflect that annotates every
// returned error with a stack trace via github.com/pkg/errors, the way
// google-gapid wraps its gapis/gapil error paths.
package spirq

import (
	"github.com/pkg/errors"

	"github.com/gogpu/spirq/reflect"
)

// Config mirrors reflect.Config at the root package boundary so
// callers never need to import the reflect subpackage directly.
type Config = reflect.Config

// EntryPoint mirrors reflect.EntryPoint.
type EntryPoint = reflect.EntryPoint

// Specializations mirrors reflect.Specializations.
type Specializations = reflect.Specializations

// Error mirrors reflect.Error, the typed error exposed verbatim across
// the C ABI (errors.Cause recovers this from a wrapped error).
type Error = reflect.Error

// Re-exported error kinds, so callers never need to import reflect
// just to branch on a Kind.
const (
	ArgumentNull          = reflect.ArgumentNull
	ArgumentOutOfRange    = reflect.ArgumentOutOfRange
	InvalidArgument       = reflect.InvalidArgument
	CorruptedSpirv        = reflect.CorruptedSpirv
	UnsupportedSpirv      = reflect.UnsupportedSpirv
	InvalidSpecialization = reflect.InvalidSpecialization
)

// Reflect runs the full reflection pipeline over cfg and returns every
// entry point the module declares. Errors are wrapped with
// github.com/pkg/errors so callers get a stack trace; errors.Cause(err)
// recovers the bare *Error for C-ABI-style callers that need the
// integer Kind.
func Reflect(cfg Config) ([]*EntryPoint, error) {
	entryPoints, err := reflect.Reflect(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "spirq: reflect")
	}
	return entryPoints, nil
}
