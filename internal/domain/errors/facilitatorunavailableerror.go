package errors

import "fmt"

type FacilitatorUnavailableError struct {
	message string
}

func (v *FacilitatorUnavailableError) Error() string {
	return v.message
}

func FacilitatorUnavailableErrorf(format string, args ...any) *FacilitatorUnavailableError {
	return &FacilitatorUnavailableError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &FacilitatorUnavailableError{}
