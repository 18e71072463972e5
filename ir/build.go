package ir

import "strconv"

func LitWord(s string) Word {
	return Word{Parts: []Part{&Lit{Text: s}}}
}

func IntWord(n int64) Word {
	return LitWord(strconv.FormatInt(n, 10))
}

func VarWord(n Name) Word {
	return Word{Parts: []Part{&Var{Name: n}}}
}

func ArithWord(x Arith) Word {
	switch v := x.(type) {
	case *Num:
		return IntWord(v.Value)
	case *Ref:
		return VarWord(v.Name)
	}
	return Word{Parts: []Part{&ArithPart{X: x}}}
}

// Concat joins words into one.
func Concat(words ...Word) Word {
	var w Word
	for _, x := range words {
		w.Parts = append(w.Parts, x.Parts...)
	}
	return w
}

// Cmd builds a simple command.
func Cmd(name string, args ...Word) *Command {
	return &Command{Name: name, Args: args}
}

// Static reports whether w is made only of literal text and returns it.
func (w Word) Static() (string, bool) {
	s := ""
	for _, p := range w.Parts {
		l, ok := p.(*Lit)
		if !ok {
			return "", false
		}
		s += l.Text
	}
	return s, true
}

// Printf writes Value with a fixed format; the format never carries data.
func Printf(format string, value Word) *Command {
	return Cmd("printf", LitWord(format), value)
}
