package errors

import "fmt"

type InsufficientFundsError struct {
	message string
}

func (v *InsufficientFundsError) Error() string {
	return v.message
}

func InsufficientFundsErrorf(format string, args ...any) *InsufficientFundsError {
	return &InsufficientFundsError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &InsufficientFundsError{}
