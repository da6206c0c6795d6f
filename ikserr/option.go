package ikserr

import "fmt"

// Option is an Error option function
type Option func(*Error)

// Msg sets the error message.
func Msg(msg string) Option { return func(e *Error) { e.Message = msg } }

// Msgf sets a formatted error message.
func Msgf(format string, args ...interface{}) Option {
	return func(e *Error) { e.Message = fmt.Sprintf(format, args...) }
}

// At records the input position the error was detected at.
func At(byteOffset, line, column int) Option {
	return func(e *Error) {
		e.Byte = byteOffset
		e.Line = line
		e.Column = column
		e.HasLocation = true
	}
}
