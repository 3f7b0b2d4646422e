package directive

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"pragmax/internal/source"
	"pragmax/internal/tree"
)

// Prefix opens every directive handled by pragmax.
const Prefix = "claw"

// SyntaxError is a malformed claw pragma.
type SyntaxError struct {
	Line uint32
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// IsClaw reports whether raw pragma text opens with the claw prefix.
func IsClaw(raw string) bool {
	first, _, _ := strings.Cut(normalize(raw), " ")
	return first == Prefix
}

func normalize(raw string) string {
	s := strings.TrimSpace(cases.Fold().String(raw))
	s = strings.TrimPrefix(s, "!$")
	return strings.TrimSpace(s)
}

// Parse reads a claw pragma. It returns (nil, nil) when raw is not a claw
// directive so foreign pragmas pass through untouched.
func Parse(raw string, pragma tree.NodeID, sp source.Span) (*Directive, error) {
	text := normalize(raw)
	rest, ok := strings.CutPrefix(text, Prefix)
	if !ok || (rest != "" && rest[0] != ' ') {
		return nil, nil
	}
	p := &parser{src: strings.TrimSpace(rest), line: sp.Line}
	d := &Directive{Pragma: pragma, Span: sp, Raw: raw}

	word := p.word()
	switch word {
	case "loop-extract":
		d.Kind = KindLoopExtract
	case "loop-fusion":
		d.Kind = KindLoopFusion
	case "remove":
		d.Kind = KindRemove
	case "end":
		if next := p.word(); next != "remove" {
			return nil, p.errorf("unknown end directive %q", next)
		}
		d.Kind = KindEndRemove
	case "":
		return nil, p.errorf("missing directive name")
	default:
		return nil, p.errorf("unknown directive %q", word)
	}

	for !p.done() {
		clause := p.word()
		if clause == "" {
			return nil, p.errorf("unexpected %q", p.src[p.pos:])
		}
		if err := p.clause(d, clause); err != nil {
			return nil, err
		}
	}

	if d.Kind == KindLoopExtract && d.Range == nil {
		return nil, p.errorf("loop-extract requires a range clause")
	}
	if d.Group != "" && !d.Fusion && d.Kind == KindLoopExtract {
		return nil, p.errorf("group clause requires fusion")
	}
	return d, nil
}

type parser struct {
	src  string
	pos  int
	line uint32
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) done() bool {
	p.skipSpace()
	return p.pos >= len(p.src)
}

// word reads an identifier made of letters, digits, '-' and '_'.
func (p *parser) word() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '(' || c == ' ' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

// args reads a parenthesized argument, nested parentheses included.
func (p *parser) args(clause string) (string, error) {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return "", p.errorf("%s clause expects '('", clause)
	}
	depth := 0
	start := p.pos + 1
	for ; p.pos < len(p.src); p.pos++ {
		switch p.src[p.pos] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				body := p.src[start:p.pos]
				p.pos++
				return strings.TrimSpace(body), nil
			}
		}
	}
	return "", p.errorf("unclosed %s clause", clause)
}

var allowedClauses = map[Kind][]string{
	KindLoopExtract: {"range", "map", "fusion", "group", "parallel", "acc", "routine"},
	KindLoopFusion:  {"group"},
}

func (p *parser) clause(d *Directive, name string) error {
	if !slices.Contains(allowedClauses[d.Kind], name) {
		return p.errorf("clause %q is not allowed on %s", name, d.Kind)
	}

	switch name {
	case "range":
		if d.Range != nil {
			return p.errorf("duplicate range clause")
		}
		body, err := p.args(name)
		if err != nil {
			return err
		}
		rng, err := p.parseRange(body)
		if err != nil {
			return err
		}
		d.Range = &rng
	case "map":
		body, err := p.args(name)
		if err != nil {
			return err
		}
		m, err := p.parseMapping(body)
		if err != nil {
			return err
		}
		d.Mappings = append(d.Mappings, m)
	case "group":
		body, err := p.args(name)
		if err != nil {
			return err
		}
		if body == "" {
			return p.errorf("empty group clause")
		}
		d.Group = body
	case "acc":
		body, err := p.args(name)
		if err != nil {
			return err
		}
		d.AccClauses = body
	case "fusion":
		d.Fusion = true
	case "parallel":
		d.Parallel = true
	case "routine":
		d.Routine = true
	}
	return nil
}

// parseRange reads "i=lower,upper[,step]".
func (p *parser) parseRange(body string) (Range, error) {
	induction, bounds, ok := strings.Cut(body, "=")
	induction = strings.TrimSpace(induction)
	if !ok || induction == "" {
		return Range{}, p.errorf("range clause expects induction=lower,upper[,step]")
	}
	parts := splitTop(bounds, ',')
	if len(parts) < 2 || len(parts) > 3 {
		return Range{}, p.errorf("range clause expects 2 or 3 bounds, got %d", len(parts))
	}
	rng := Range{Induction: induction, Lower: parts[0], Upper: parts[1]}
	if len(parts) == 3 {
		rng.Step = parts[2]
	}
	for _, part := range parts {
		if part == "" {
			return Range{}, p.errorf("empty bound in range clause")
		}
	}
	return rng, nil
}

// parseMapping reads "a[/b],...:i[/j],...".
func (p *parser) parseMapping(body string) (Mapping, error) {
	mapped, mapping, ok := strings.Cut(body, ":")
	if !ok {
		return Mapping{}, p.errorf("map clause expects mapped:mapping")
	}
	var m Mapping
	var err error
	if m.Mapped, err = p.parseVars(mapped); err != nil {
		return Mapping{}, err
	}
	if m.Mapping, err = p.parseVars(mapping); err != nil {
		return Mapping{}, err
	}
	return m, nil
}

func (p *parser) parseVars(list string) ([]MappingVar, error) {
	var out []MappingVar
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, p.errorf("empty variable in map clause")
		}
		arg, fct, split := strings.Cut(item, "/")
		arg, fct = strings.TrimSpace(arg), strings.TrimSpace(fct)
		if !split {
			fct = arg
		}
		if arg == "" || fct == "" {
			return nil, p.errorf("malformed mapping variable %q", item)
		}
		out = append(out, MappingVar{Arg: arg, Fct: fct})
	}
	return out, nil
}

// splitTop splits s on sep outside parentheses and trims every part.
func splitTop(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}
