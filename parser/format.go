package parser

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle"
	"github.com/alecthomas/participle/lexer"
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/types"
)

type formatString struct {
	Pieces []*formatPiece `parser:"@@*"`
}

type formatPiece struct {
	Open  bool   `parser:"  @Open"`
	Close bool   `parser:"| @Close"`
	Hole  string `parser:"| @Hole"`
	Text  string `parser:"| @Text"`
}

var formatLexer = lexer.Must(lexer.Regexp(
	`(?P<Open>\{\{)|(?P<Close>\}\})|(?P<Hole>\{[^{}]*\})|(?P<Text>[^{}]+)`,
))

var formatParser = participle.MustBuild(&formatString{}, participle.Lexer(formatLexer))

type formatArg struct {
	name  string
	value ast.Expression
}

// parseFormat resolves the holes of a format string against its
// arguments. Named holes without a matching `name = value` argument
// capture the variable of that name.
func parseFormat(text string, at types.Span, args []formatArg) *ast.Format {
	var parsed formatString
	if err := formatParser.ParseString(text, &parsed); err != nil {
		panic(errors.SyntaxError{
			Expectation: "invalid format string: unmatched `{` or `}`",
			Location:    at,
		})
	}

	f := &ast.Format{}
	named := map[string]int{}
	positional := 0
	for i, a := range args {
		f.Args = append(f.Args, a.value)
		if a.name != "" {
			named[a.name] = i
		} else {
			if len(named) > 0 {
				panic(errors.SyntaxError{
					Expectation: "positional arguments cannot follow named arguments",
					Location:    a.value.Location(),
				})
			}
			positional++
		}
	}
	used := make([]bool, len(args))

	next := 0
	addText := func(s string) {
		if n := len(f.Pieces); n > 0 && !f.Pieces[n-1].Hole {
			f.Pieces[n-1].Text += s
			return
		}
		f.Pieces = append(f.Pieces, ast.FormatPiece{Text: s})
	}
	for _, piece := range parsed.Pieces {
		switch {
		case piece.Open:
			addText("{")
		case piece.Close:
			addText("}")
		case piece.Text != "":
			addText(piece.Text)
		default:
			inner := piece.Hole[1 : len(piece.Hole)-1]
			ref, spec := inner, ""
			if i := strings.IndexByte(inner, ':'); i >= 0 {
				ref, spec = inner[:i], inner[i+1:]
			}
			var debug bool
			switch spec {
			case "":
			case "?":
				debug = true
			default:
				panic(errors.UnsupportedConstructError{
					Construct: "format specification `{:" + spec + "}`",
					Location:  at,
				})
			}

			var idx int
			switch {
			case ref == "":
				idx = next
				next++
				if idx >= positional {
					panic(errors.SyntaxError{
						Expectation: "format string has more `{}` holes than arguments",
						Location:    at,
					})
				}
			case ref[0] >= '0' && ref[0] <= '9':
				n, err := strconv.Atoi(ref)
				if err != nil || n >= positional {
					panic(errors.SyntaxError{
						Expectation: "invalid reference to positional argument " + ref,
						Location:    at,
					})
				}
				idx = n
			default:
				if !validIdent(ref) {
					panic(errors.SyntaxError{
						Expectation: "invalid format argument name `" + ref + "`",
						Location:    at,
					})
				}
				if n, ok := named[ref]; ok {
					idx = n
				} else {
					f.Args = append(f.Args, &ast.Path{Segments: []string{ref}, Pos: at})
					used = append(used, true)
					idx = len(f.Args) - 1
					named[ref] = idx
				}
			}
			used[idx] = true
			f.Pieces = append(f.Pieces, ast.FormatPiece{Hole: true, Arg: idx, Debug: debug})
		}
	}

	for i, u := range used {
		if !u {
			panic(errors.SyntaxError{
				Expectation: "argument never used by the format string",
				Location:    f.Args[i].Location(),
			})
		}
	}
	return f
}

func validIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}
