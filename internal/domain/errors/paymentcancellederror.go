package errors

import "fmt"

type PaymentCancelledError struct {
	message string
}

func (v *PaymentCancelledError) Error() string {
	return v.message
}

func PaymentCancelledErrorf(format string, args ...any) *PaymentCancelledError {
	return &PaymentCancelledError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &PaymentCancelledError{}
