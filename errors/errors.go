package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/pontaoski/tawash/types"
	"github.com/ztrue/tracerr"
)

// Kind classifies a diagnostic.
type Kind int

const (
	SyntaxErrorKind Kind = iota
	UnsupportedConstructKind
	TypeErrorKind
	ValidationErrorKind
	RecursionLimitKind
)

func (k Kind) String() string {
	switch k {
	case SyntaxErrorKind:
		return "SyntaxError"
	case UnsupportedConstructKind:
		return "UnsupportedConstructError"
	case TypeErrorKind:
		return "TypeError"
	case ValidationErrorKind:
		return "ValidationError"
	case RecursionLimitKind:
		return "RecursionLimitExceeded"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Diagnostic is the structured failure every compiler stage reports.
type Diagnostic interface {
	error
	Kind() Kind
	Span() types.Span
	Message() string
}

type SyntaxError struct {
	Expectation string
	Location    types.Span
}

func (e SyntaxError) Error() string { return format(e) }
func (e SyntaxError) Kind() Kind { return SyntaxErrorKind }
func (e SyntaxError) Span() types.Span { return e.Location }
func (e SyntaxError) Message() string { return e.Expectation }

type ExpectedOneOfKindGotKind struct {
	Expected []types.TokenKind
	Got      types.TokenKind
	Location types.Span
}

func (e ExpectedOneOfKindGotKind) Error() string { return format(e) }
func (e ExpectedOneOfKindGotKind) Kind() Kind { return SyntaxErrorKind }
func (e ExpectedOneOfKindGotKind) Span() types.Span { return e.Location }

func (e ExpectedOneOfKindGotKind) Message() string {
	if len(e.Expected) == 1 {
		return fmt.Sprintf("got %s, expected %s", e.Got, e.Expected[0])
	}
	var names []string
	for _, k := range e.Expected {
		names = append(names, k.String())
	}
	return fmt.Sprintf("got %s, expected one of %s", e.Got, strings.Join(names, ", "))
}

type DuplicateField struct {
	Name     string
	Location types.Span
}

func (e DuplicateField) Error() string { return format(e) }
func (e DuplicateField) Kind() Kind { return SyntaxErrorKind }
func (e DuplicateField) Span() types.Span { return e.Location }
func (e DuplicateField) Message() string {
	return fmt.Sprintf("field %s specified more than once", e.Name)
}

// UnsupportedConstructError reports valid source that lies outside the
// compilable subset.
type UnsupportedConstructError struct {
	Construct  string
	Suggestion string
	Location   types.Span
}

func (e UnsupportedConstructError) Error() string { return format(e) }
func (e UnsupportedConstructError) Kind() Kind { return UnsupportedConstructKind }
func (e UnsupportedConstructError) Span() types.Span { return e.Location }
func (e UnsupportedConstructError) Message() string {
	msg := fmt.Sprintf("unsupported construct: %s", e.Construct)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean `%s`?)", e.Suggestion)
	}
	return msg
}

type TypeError struct {
	Msg      string
	Location types.Span
}

func (e TypeError) Error() string { return format(e) }
func (e TypeError) Kind() Kind { return TypeErrorKind }
func (e TypeError) Span() types.Span { return e.Location }
func (e TypeError) Message() string { return e.Msg }

// NewTypeError builds a TypeError with a formatted message.
func NewTypeError(at types.Span, msg string, args ...interface{}) TypeError {
	return TypeError{Msg: fmt.Sprintf(msg, args...), Location: at}
}

// Violation is one rule broken by a candidate script.
type Violation struct {
	Line    int
	Rule    string
	Excerpt string
}

func (v Violation) Error() string {
	if v.Line == 0 {
		// found in the program rather than in a line of its text
		if v.Excerpt == "" {
			return v.Rule
		}
		return fmt.Sprintf("%s: %s", v.Rule, v.Excerpt)
	}
	if v.Excerpt == "" {
		return fmt.Sprintf("line %d: %s", v.Line, v.Rule)
	}
	return fmt.Sprintf("line %d: %s: %s", v.Line, v.Rule, v.Excerpt)
}

// ValidationError carries every violation found in a rejected script.
type ValidationError struct {
	Violations []Violation
	Cause      error
}

func (e ValidationError) Error() string { return format(e) }
func (e ValidationError) Kind() Kind { return ValidationErrorKind }
func (e ValidationError) Unwrap() error { return e.Cause }

func (e ValidationError) Span() types.Span {
	p := types.Position{Filename: "<generated>"}
	if len(e.Violations) > 0 {
		p.Line = e.Violations[0].Line
		p.Column = 1
	}
	return types.SingleCharSpan(p)
}

func (e ValidationError) Message() string {
	if e.Cause != nil {
		return "unsafe script rejected: " + e.Cause.Error()
	}
	return "unsafe script rejected"
}

type RecursionLimitExceeded struct {
	Stage    string
	Limit    int
	Location types.Span
}

func (e RecursionLimitExceeded) Error() string { return format(e) }
func (e RecursionLimitExceeded) Kind() Kind { return RecursionLimitKind }
func (e RecursionLimitExceeded) Span() types.Span { return e.Location }
func (e RecursionLimitExceeded) Message() string {
	return fmt.Sprintf("%s nesting exceeds the limit of %d", e.Stage, e.Limit)
}

func format(d Diagnostic) string {
	return fmt.Sprintf("%s: %s: %s", d.Span().From, d.Kind(), d.Message())
}

// AsDiagnostic finds the diagnostic behind err, looking through tracerr
// and fmt wrapping.
func AsDiagnostic(err error) (Diagnostic, bool) {
	if err == nil {
		return nil, false
	}
	var d Diagnostic
	if stderrors.As(tracerr.Unwrap(err), &d) {
		return d, true
	}
	if stderrors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// KindOf returns the kind of the diagnostic behind err.
func KindOf(err error) (Kind, bool) {
	d, ok := AsDiagnostic(err)
	if !ok {
		return 0, false
	}
	return d.Kind(), true
}
