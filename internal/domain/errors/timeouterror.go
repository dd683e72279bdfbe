package errors

import "fmt"

type TimeoutError struct {
	message string
}

func (v *TimeoutError) Error() string {
	return v.message
}

func TimeoutErrorf(format string, args ...interface{}) *TimeoutError {
	return &TimeoutError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &TimeoutError{}
