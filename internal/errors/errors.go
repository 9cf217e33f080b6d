package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a brushport error code.
type ErrorCode string

const (
	ErrSignatureNotFound  ErrorCode = "SIGNATURE_NOT_FOUND"  // run
	ErrNoAssetRows        ErrorCode = "NO_ASSET_ROWS"        // run
	ErrInvalidTemplate    ErrorCode = "INVALID_TEMPLATE"     // run
	ErrDanglingReference  ErrorCode = "DANGLING_REFERENCE"   // run or bundle
	ErrMalformedAssetBlob ErrorCode = "MALFORMED_ASSET_BLOB" // row
	ErrBundleFailed       ErrorCode = "BUNDLE_FAILED"        // bundle
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"      // run
	ErrInternal           ErrorCode = "INTERNAL"             // run
)

// Scope says how far a failure reaches.
type Scope int

const (
	// ScopeRun aborts the whole conversion.
	ScopeRun Scope = iota
	// ScopeBundle aborts one destination bundle; siblings continue.
	ScopeBundle
	// ScopeRow skips one asset row; the batch continues.
	ScopeRow
)

// String returns the lowercase scope name.
func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopeBundle:
		return "bundle"
	case ScopeRow:
		return "row"
	default:
		return "unknown"
	}
}

// BrushError represents a structured error with code, scope, and details.
type BrushError struct {
	Code    ErrorCode
	Scope   Scope
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *BrushError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *BrushError) Unwrap() error {
	return e.Err
}

// NewSignatureNotFound reports that the container holds no embedded store.
func NewSignatureNotFound(size int) *BrushError {
	return &BrushError{
		Code:    ErrSignatureNotFound,
		Scope:   ScopeRun,
		Message: "embedded SQLite header not found; is this a .sut file?",
		Details: map[string]any{"container_bytes": size},
	}
}

// NewNoAssetRows reports that the store has nothing convertible.
func NewNoAssetRows() *BrushError {
	return &BrushError{
		Code:    ErrNoAssetRows,
		Scope:   ScopeRun,
		Message: "no convertible assets: MaterialFile has no rows",
	}
}

// NewNoConvertibleAssets reports that rows exist but none yielded an image.
func NewNoConvertibleAssets(rows int) *BrushError {
	return &BrushError{
		Code:    ErrNoAssetRows,
		Scope:   ScopeRun,
		Message: fmt.Sprintf("no convertible assets: all %d MaterialFile rows were malformed", rows),
		Details: map[string]any{"rows": rows},
	}
}

// NewMalformedAssetBlob reports a row whose blob has no usable marker pair.
func NewMalformedAssetBlob(rowID int64, reason string) *BrushError {
	return &BrushError{
		Code:    ErrMalformedAssetBlob,
		Scope:   ScopeRow,
		Message: fmt.Sprintf("row %d: %s", rowID, reason),
		Details: map[string]any{"row_id": rowID, "reason": reason},
	}
}

// NewInvalidTemplate reports a destination template that cannot be used.
func NewInvalidTemplate(msg string, err error) *BrushError {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &BrushError{
		Code:    ErrInvalidTemplate,
		Scope:   ScopeRun,
		Message: msg,
		Err:     err,
	}
}

// NewDanglingReference reports an indirect reference that does not resolve.
func NewDanglingReference(ref uint64, slots int) *BrushError {
	return &BrushError{
		Code:    ErrDanglingReference,
		Scope:   ScopeRun,
		Message: fmt.Sprintf("reference %d does not resolve within %d slots", ref, slots),
		Details: map[string]any{"ref": ref, "slots": slots},
	}
}

// NewBundleFailed wraps a failure building the bundle at index.
func NewBundleFailed(index int, err error) *BrushError {
	msg := "bundle failed"
	if err != nil {
		msg = err.Error()
	}
	return &BrushError{
		Code:    ErrBundleFailed,
		Scope:   ScopeBundle,
		Message: fmt.Sprintf("bundle %d: %s", index, msg),
		Details: map[string]any{"index": index},
		Err:     err,
	}
}

// NewNoBundlesBuilt reports that every bundle in a run failed. first is the
// earliest failure by index.
func NewNoBundlesBuilt(failed int, first error) *BrushError {
	msg := fmt.Sprintf("all %d bundles failed", failed)
	if first != nil {
		msg = fmt.Sprintf("%s; first: %v", msg, first)
	}
	return &BrushError{
		Code:    ErrBundleFailed,
		Scope:   ScopeRun,
		Message: msg,
		Details: map[string]any{"failed": failed},
		Err:     first,
	}
}

// NewInvalidRequest creates a run-scope error for invalid parameters.
func NewInvalidRequest(msg string) *BrushError {
	return &BrushError{
		Code:    ErrInvalidRequest,
		Scope:   ScopeRun,
		Message: msg,
	}
}

// NewInternal creates a run-scope error for unexpected failures.
func NewInternal(err error) *BrushError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &BrushError{
		Code:    ErrInternal,
		Scope:   ScopeRun,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err (or anything it wraps) is a BrushError with the given code.
func Is(err error, code ErrorCode) bool {
	var bErr *BrushError
	if stderrors.As(err, &bErr) {
		return bErr.Code == code
	}
	return false
}

// ScopeOf returns the scope of err; errors that are not BrushErrors are run scope.
func ScopeOf(err error) Scope {
	var bErr *BrushError
	if stderrors.As(err, &bErr) {
		return bErr.Scope
	}
	return ScopeRun
}
