package errors

import "fmt"

type UpstreamError struct {
	message string
}

func (v *UpstreamError) Error() string {
	return v.message
}

func UpstreamErrorf(format string, args ...any) *UpstreamError {
	return &UpstreamError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &UpstreamError{}
