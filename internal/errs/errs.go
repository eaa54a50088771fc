package errs

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Wrap prefixes err with msg. errors.Is and errors.As still see the cause.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a format string; err is appended as the %w operand.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// InfraError marks a failure of a collaborator (store, classifier, broker)
// rather than of the remediation logic itself.
type InfraError struct {
	err error
}

func (e *InfraError) Error() string { return "infrastructure failure: " + e.err.Error() }
func (e *InfraError) Unwrap() error { return e.err }

// Infra marks err as an infrastructure failure. Marking twice is a no-op.
func Infra(err error) error {
	if err == nil || IsInfra(err) {
		return err
	}
	return &InfraError{err: err}
}

// IsInfra reports whether any error in the chain was marked with Infra.
func IsInfra(err error) bool {
	var target *InfraError
	return errors.As(err, &target)
}

// StackError carries the stack captured where the failure was first given up on.
type StackError struct {
	err   error
	stack []byte
}

func (e *StackError) Error() string { return e.err.Error() }
func (e *StackError) Unwrap() error { return e.err }
func (e *StackError) Stack() []byte { return e.stack }

// WithStack records the current stack once per chain.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	var existing *StackError
	if errors.As(err, &existing) {
		return err
	}
	return &StackError{err: err, stack: debug.Stack()}
}

type loggable struct{ err error }

// Loggable renders err as a structured group: message, unwrap chain, the
// infra marker and a stack when one was recorded.
//
//	logging.Error(ctx, "sweep failed", slog.Any("err", errs.Loggable(err)))
func Loggable(err error) slog.LogValuer { return loggable{err: err} }

func (l loggable) LogValue() slog.Value {
	if l.err == nil {
		return slog.GroupValue()
	}
	attrs := []slog.Attr{
		slog.String("message", l.err.Error()),
		slog.Any("chain", ErrorChainStrings(l.err)),
		slog.Bool("infra", IsInfra(l.err)),
	}
	var se *StackError
	if errors.As(l.err, &se) {
		attrs = append(attrs, slog.String("stack", string(se.Stack())))
	}
	return slog.GroupValue(attrs...)
}

// ErrorChainStrings lists err and each error it unwraps to, outermost first.
func ErrorChainStrings(err error) []string {
	var out []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		out = append(out, e.Error())
	}
	return out
}
