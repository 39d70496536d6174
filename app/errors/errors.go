package errors

type WithCause interface{ Cause() error }

type WithHint interface{ Hint() string }

// Runtime is an error with an optional underlying cause, and a hint for the
// user on how to resolve it.
type Runtime struct {
	msg   string
	cause error
	hint  string
}

func NewRuntimeError(msg string, cause error, hint string) Runtime {
	return Runtime{msg: msg, cause: cause, hint: hint}
}

func (e Runtime) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e Runtime) Cause() error {
	return e.cause
}

func (e Runtime) Unwrap() error {
	return e.cause
}

func (e Runtime) Hint() string {
	return e.hint
}
