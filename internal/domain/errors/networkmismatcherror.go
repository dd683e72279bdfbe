package errors

import "fmt"

type NetworkMismatchError struct {
	message string
}

func (v *NetworkMismatchError) Error() string {
	return v.message
}

func NetworkMismatchErrorf(format string, args ...any) *NetworkMismatchError {
	return &NetworkMismatchError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &NetworkMismatchError{}
