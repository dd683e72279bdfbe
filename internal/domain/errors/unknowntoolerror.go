package errors

import "fmt"

type UnknownToolError struct {
	message string
}

func (v *UnknownToolError) Error() string {
	return v.message
}

func UnknownToolErrorf(format string, args ...any) *UnknownToolError {
	return &UnknownToolError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &UnknownToolError{}
