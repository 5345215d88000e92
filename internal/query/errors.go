package query

import "fmt"

// InvalidParameterError reports a malformed, ambiguous or unrecognized
// request parameter. It is a caller error and never reaches query
// construction.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

func invalidParam(param, format string, args ...interface{}) error {
	return &InvalidParameterError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// UnauthorizedError reports that the caller has no access to the scoped
// site. It short-circuits before any query is built.
type UnauthorizedError struct {
	SiteID uint32
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("no access to site %d", e.SiteID)
}

// QueryExecutionError wraps a failure reported by the analytics store.
// The generated statement is carried for logging but must never be
// echoed to the caller.
type QueryExecutionError struct {
	Statement string
	Err       error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("analytics query failed: %v", e.Err)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}
