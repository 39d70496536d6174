package kv

import (
	"errors"
	"fmt"
)

// Kind classifies the errors returned by Store.
type Kind uint8

// Error kinds.
const (
	KindUnknown Kind = iota
	KindDuplicate
	KindSaveObject
	KindGetObject
	KindInsertKey
	KindNotFound
	KindDelete
	KindWipe
)

func (k Kind) String() string {
	switch k {
	case KindDuplicate:
		return "duplicate error"
	case KindSaveObject:
		return "save object error"
	case KindGetObject:
		return "get object error"
	case KindInsertKey:
		return "insert key error"
	case KindNotFound:
		return "not found"
	case KindDelete:
		return "can't delete"
	case KindWipe:
		return "can't wipe store"
	default:
		return "unknown error"
	}
}

// Error is returned by all Store operations. Use errors.Is with the Err*
// sentinels to check the kind, and errors.Unwrap to get the backend cause.
type Error struct {
	Kind  Kind
	Key   string
	cause error
}

// Sentinels matching errors of each kind.
var (
	ErrUnknown    = &Error{Kind: KindUnknown}
	ErrDuplicate  = &Error{Kind: KindDuplicate}
	ErrSaveObject = &Error{Kind: KindSaveObject}
	ErrGetObject  = &Error{Kind: KindGetObject}
	ErrInsertKey  = &Error{Kind: KindInsertKey}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrDelete     = &Error{Kind: KindDelete}
	ErrWipe       = &Error{Kind: KindWipe}
)

var (
	errEmptyKey    = errors.New("empty storage key")
	errReservedKey = fmt.Errorf("storage key '%s' is reserved", IndexKey)
)

func newError(kind Kind, key string, cause error) *Error {
	return &Error{Kind: kind, Key: key, cause: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Key != "" {
		msg = fmt.Sprintf("%s: key '%s'", msg, e.Key)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
