package errors

import "fmt"

type PaymentPendingError struct {
	message string
}

func (v *PaymentPendingError) Error() string {
	return v.message
}

func PaymentPendingErrorf(format string, args ...any) *PaymentPendingError {
	return &PaymentPendingError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &PaymentPendingError{}
