// Package validate rejects scripts that step outside the safe subset of
// POSIX sh the emitter produces. It reads the script text as the shell
// would, and checks the program it was rendered from, so a defect in
// either lowering or emitting is caught before a script is written out.
package validate

import (
	"regexp"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/coreos/pkg/capnslog"
	"github.com/coreos/pkg/multierror"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/tawash", "validate")

// Validate checks script, and the program it was emitted from when p is
// not nil. It returns an errors.ValidationError listing every violation.
func Validate(script string, p *ir.Program) error {
	vs := Script(script)
	if p != nil {
		vs = append(vs, Program(p)...)
	}
	if len(vs) == 0 {
		return nil
	}

	var merr multierror.Error
	for _, v := range vs {
		plog.Debugf("violation: %s", v)
		merr = append(merr, v)
	}
	return errors.ValidationError{Violations: vs, Cause: merr.AsError()}
}

// Script checks the text of a script.
func Script(script string) []errors.Violation {
	var vs []errors.Violation
	if _, err := shlex.Split(script, true); err != nil {
		vs = append(vs, errors.Violation{Rule: "unbalanced quoting", Excerpt: err.Error()})
	}
	s := &scanner{src: script}
	s.command(0)
	return append(vs, s.violations...)
}

// denied builtins and keywords. The emitter quotes these whenever they
// are data, so a bare one is always syntax.
var denied = map[string]string{
	"eval":     "eval",
	"source":   "sourcing a file",
	".":        "sourcing a file",
	"exec":     "exec",
	"local":    "non-POSIX builtin",
	"declare":  "non-POSIX builtin",
	"typeset":  "non-POSIX builtin",
	"let":      "non-POSIX builtin",
	"function": "non-POSIX function definition",
	"select":   "non-POSIX keyword",
	"[[":       "non-POSIX test",
	"]]":       "non-POSIX test",
}

var braceExpansion = regexp.MustCompile(`\{[^{}]*(\.\.|,)[^{}]*\}`)

type scanner struct {
	src        string
	i          int
	violations []errors.Violation

	word   strings.Builder
	inWord bool
	bare   bool
	start  int
}

func (s *scanner) peek(off int) byte {
	if s.i+off < len(s.src) {
		return s.src[s.i+off]
	}
	return 0
}

func (s *scanner) has(prefix string) bool {
	return strings.HasPrefix(s.src[s.i:], prefix)
}

// line returns the 1-based line of offset at and its text.
func (s *scanner) line(at int) (int, string) {
	if at > len(s.src) {
		at = len(s.src)
	}
	begin := strings.LastIndexByte(s.src[:at], '\n') + 1
	end := strings.IndexByte(s.src[at:], '\n')
	if end < 0 {
		end = len(s.src)
	} else {
		end += at
	}
	return strings.Count(s.src[:begin], "\n") + 1, strings.TrimSpace(s.src[begin:end])
}

func (s *scanner) violate(at int, rule string) {
	n, text := s.line(at)
	s.violations = append(s.violations, errors.Violation{Line: n, Rule: rule, Excerpt: text})
}

func (s *scanner) beginWord(bare bool) {
	if !s.inWord {
		s.inWord = true
		s.bare = true
		s.start = s.i
		s.word.Reset()
	}
	if !bare {
		s.bare = false
	}
}

func (s *scanner) endWord() {
	if !s.inWord {
		return
	}
	s.inWord = false
	if !s.bare {
		return
	}
	w := s.word.String()
	if rule, ok := denied[w]; ok {
		if w == "exec" {
			if _, text := s.line(s.start); text == "exec 3>&1" {
				return
			}
		}
		s.violate(s.start, rule)
		return
	}
	if braceExpansion.MatchString(w) {
		s.violate(s.start, "brace expansion")
	}
}

// command scans unquoted shell text until EOF, or until the byte closing
// a command substitution when until is ')'.
func (s *scanner) command(until byte) {
	for s.i < len(s.src) {
		c := s.src[s.i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			s.endWord()
			s.i++
		case c == '#' && !s.inWord:
			for s.i < len(s.src) && s.src[s.i] != '\n' {
				s.i++
			}
		case c == '\'':
			s.beginWord(false)
			s.single()
		case c == '"':
			s.beginWord(false)
			s.i++
			s.double()
		case c == '\\':
			s.beginWord(false)
			s.i += 2
		case c == '`':
			s.violate(s.i, "backtick command substitution")
			s.beginWord(false)
			s.i++
		case c == '$':
			s.beginWord(false)
			if !s.has("$((") {
				s.violate(s.i, "unquoted expansion")
			}
			if s.peek(1) == '\'' {
				s.violate(s.i, "ANSI-C quoting")
			}
			s.dollar()
		case c == ')' && until == ')':
			s.endWord()
			s.i++
			return
		case strings.IndexByte(";&|<>()", c) >= 0:
			s.operator(c)
		default:
			s.beginWord(true)
			s.word.WriteByte(c)
			s.i++
		}
	}
	s.endWord()
}

func (s *scanner) operator(c byte) {
	at := s.i
	prevEq := s.inWord && s.bare && strings.HasSuffix(s.word.String(), "=")
	s.endWord()
	next := s.peek(1)
	switch c {
	case '<':
		switch {
		case s.has("<<<"):
			s.violate(at, "here-string")
		case next == '<':
			s.violate(at, "here-document")
		case next == '(':
			s.violate(at, "process substitution")
		}
	case '>':
		if next == '(' {
			s.violate(at, "process substitution")
		}
	case '&':
		if next == '>' {
			s.violate(at, "non-POSIX redirection")
		}
	case '|':
		if next == '&' {
			s.violate(at, "non-POSIX pipe")
		}
	case '(':
		switch {
		case next == '(':
			s.violate(at, "arithmetic command")
		case prevEq:
			s.violate(at, "array assignment")
		}
	}
	s.i++
}

// single skips a single-quoted string, quotes included.
func (s *scanner) single() {
	end := strings.IndexByte(s.src[s.i+1:], '\'')
	if end < 0 {
		s.i = len(s.src)
		return
	}
	s.i += end + 2
}

// double scans the inside of a double-quoted string and its closing quote.
func (s *scanner) double() {
	for s.i < len(s.src) {
		switch s.src[s.i] {
		case '"':
			s.i++
			return
		case '\\':
			s.i += 2
		case '`':
			s.violate(s.i, "backtick command substitution")
			s.i++
		case '$':
			s.dollar()
		default:
			s.i++
		}
	}
}

func isNameByte(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

// dollar scans one expansion starting at `$`.
func (s *scanner) dollar() {
	switch {
	case s.has("$(("):
		s.i += 3
		s.arith()
	case s.has("$("):
		s.i += 2
		s.command(')')
	case s.has("${"):
		s.i += 2
		s.param()
	default:
		s.i++
		if s.i < len(s.src) && strings.IndexByte("@#?*$!-", s.src[s.i]) >= 0 {
			s.i++
			return
		}
		for s.i < len(s.src) && isNameByte(s.src[s.i]) {
			s.i++
		}
	}
}

// arith scans to the `))` closing an arithmetic expansion.
func (s *scanner) arith() {
	depth := 0
	for s.i < len(s.src) {
		switch c := s.src[s.i]; c {
		case '(':
			depth++
			s.i++
		case ')':
			if depth == 0 && s.peek(1) == ')' {
				s.i += 2
				return
			}
			depth--
			s.i++
		case '$':
			s.dollar()
		case '`':
			s.violate(s.i, "backtick command substitution")
			s.i++
		default:
			s.i++
		}
	}
}

// param scans a `${...}` expansion after its opening brace.
func (s *scanner) param() {
	at := s.i - 2
	switch {
	case s.peek(0) == '!':
		s.violate(at, "indirect expansion")
		s.i++
	case s.peek(0) == '#' && s.peek(1) != '}':
		s.i++
	}
	if strings.IndexByte("@#?*$!-", s.peek(0)) >= 0 {
		s.i++
	} else {
		for s.i < len(s.src) && isNameByte(s.src[s.i]) {
			s.i++
		}
	}

	switch c := s.peek(0); c {
	case '}':
		s.i++
		return
	case ':':
		if strings.IndexByte("-=?+", s.peek(1)) < 0 {
			s.violate(at, "substring expansion")
		}
		s.i += 2
	case '#', '%':
		s.i++
		if s.peek(0) == c {
			s.i++
		}
	case '-', '=', '?', '+':
		s.i++
	case '/':
		s.violate(at, "pattern substitution")
		s.i++
	case '^', ',':
		s.violate(at, "case modification")
		s.i++
	default:
		s.violate(at, "unsupported parameter expansion")
	}

	for s.i < len(s.src) {
		switch s.src[s.i] {
		case '}':
			s.i++
			return
		case '"':
			s.i++
			s.double()
		case '\'':
			s.single()
		case '\\':
			s.i += 2
		case '`':
			s.violate(s.i, "backtick command substitution")
			s.i++
		case '$':
			s.dollar()
		default:
			s.i++
		}
	}
}
