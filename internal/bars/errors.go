package bars

import (
	"errors"
	"fmt"
)

// Kind classifies a failed fetch cycle.
type Kind int

const (
	KindUnknown Kind = iota
	// KindProvider means the data provider call itself failed.
	KindProvider
	// KindEmptyResult means the provider answered but returned no rows.
	KindEmptyResult
	// KindMalformed means a provider row could not be coerced.
	KindMalformed
	// KindCacheWrite means the merged record set could not be persisted.
	KindCacheWrite
)

var (
	ErrProvider    = errors.New("provider error")
	ErrEmptyResult = errors.New("empty result")
	ErrMalformed   = errors.New("malformed row")
	ErrCacheWrite  = errors.New("cache write failed")
)

func (k Kind) String() string {
	switch k {
	case KindProvider:
		return "provider"
	case KindEmptyResult:
		return "empty result"
	case KindMalformed:
		return "malformed"
	case KindCacheWrite:
		return "cache write"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindProvider:
		return ErrProvider
	case KindEmptyResult:
		return ErrEmptyResult
	case KindMalformed:
		return ErrMalformed
	case KindCacheWrite:
		return ErrCacheWrite
	}
	return nil
}

// Error is a fetch-path failure tagged with its Kind. errors.Is matches both
// the wrapped cause and the sentinel for the kind.
type Error struct {
	Kind   Kind
	Symbol string
	Err    error
}

func NewError(kind Kind, symbol string, err error) *Error {
	return &Error{Kind: kind, Symbol: symbol, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Symbol != "" {
		msg += ": " + e.Symbol
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func malformed(symbol string, format string, args ...any) *Error {
	return NewError(KindMalformed, symbol, fmt.Errorf(format, args...))
}
