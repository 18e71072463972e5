package emit

import (
	"strings"

	"github.com/pontaoski/tawash/ir"
)

// reserved words and denied builtins are quoted wherever they appear, so
// a bare occurrence in a script can only be syntax.
var reserved = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "fi": true,
	"do": true, "done": true, "case": true, "esac": true, "while": true,
	"until": true, "for": true, "in": true, "function": true, "select": true,
	"time": true, "{": true, "}": true, "!": true,
	"eval": true, "source": true, ".": true, "exec": true, "local": true,
	"declare": true, "typeset": true, "let": true,
}

func safeByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("_./:=+@,-", c) >= 0
}

// Safe reports whether s can be emitted without quotes.
func Safe(s string) bool {
	if s == "" || reserved[s] {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !safeByte(s[i]) {
			return false
		}
	}
	return true
}

// SingleQuote quotes s so that the shell reads it back verbatim.
func SingleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func literal(s string) string {
	if Safe(s) {
		return s
	}
	return SingleQuote(s)
}

var dqEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

// word renders w as one shell word. Literal text is quoted so it is never
// re-interpreted, expansions are always inside double quotes, and glob
// parts are left bare.
func (e *emitter) word(w ir.Word) string {
	e.push()
	defer e.pop()

	if s, ok := w.Static(); ok {
		return literal(s)
	}

	var sb strings.Builder
	open := false
	openQuote := func() {
		if !open {
			sb.WriteByte('"')
			open = true
		}
	}
	closeQuote := func() {
		if open {
			sb.WriteByte('"')
			open = false
		}
	}
	for _, p := range w.Parts {
		switch v := p.(type) {
		case *ir.Lit:
			if v.Text == "" {
				continue
			}
			if !open && Safe(v.Text) {
				sb.WriteString(v.Text)
				continue
			}
			openQuote()
			sb.WriteString(dqEscaper.Replace(v.Text))
		case *ir.Glob:
			closeQuote()
			sb.WriteString(v.Pattern)
		default:
			openQuote()
			sb.WriteString(e.expansion(p))
		}
	}
	closeQuote()
	if sb.Len() == 0 {
		return "''"
	}
	return sb.String()
}

// expansion renders a dynamic part as it appears inside double quotes.
func (e *emitter) expansion(p ir.Part) string {
	switch v := p.(type) {
	case *ir.Var:
		name := v.Name.String()
		switch {
		case v.Op == "":
			return "${" + name + "}"
		case v.Op == "len":
			return "${#" + name + "}"
		}
		arg := ""
		if v.Arg != nil {
			arg = e.operand(*v.Arg)
		}
		return "${" + name + v.Op + arg + "}"
	case *ir.Param:
		switch {
		case v.Special != "":
			return "$" + v.Special
		case v.Index < 10:
			return "$" + itoa(v.Index)
		}
		return "${" + itoa(v.Index) + "}"
	case *ir.ArithPart:
		return "$((" + e.arith(v.X, 0) + "))"
	case *ir.CmdSubst:
		var cmds []string
		for _, c := range v.List {
			cmds = append(cmds, e.command(c))
		}
		return "$(" + strings.Join(cmds, " && ") + ")"
	}
	panic(internalError("unexpected word part %T", p))
}

// operand renders the word inside `${name<op>word}`. Quoted parts match
// literally; glob parts keep their pattern meaning.
func (e *emitter) operand(w ir.Word) string {
	var sb strings.Builder
	for _, p := range w.Parts {
		switch v := p.(type) {
		case *ir.Lit:
			if Safe(v.Text) {
				sb.WriteString(v.Text)
			} else if v.Text != "" {
				sb.WriteString(`"` + dqEscaper.Replace(v.Text) + `"`)
			}
		case *ir.Glob:
			sb.WriteString(v.Pattern)
		case *ir.CmdSubst:
			panic(internalError("command substitution in a parameter expansion operand"))
		default:
			sb.WriteString(`"` + e.expansion(p) + `"`)
		}
	}
	return sb.String()
}
