package directive

import (
	"pragmax/internal/program"
	"pragmax/internal/tree"
)

// Block is a start directive with its optional end directive.
type Block struct {
	Start *Directive
	End   *Directive
}

// Registry collects the claw directives of one program in document order.
type Registry struct {
	directives []*Directive
	byKind     map[Kind][]int // kind -> indices into directives
	guards     []tree.NodeID
}

// NewRegistry creates an empty directive registry.
func NewRegistry() *Registry {
	return &Registry{
		directives: make([]*Directive, 0),
		byKind:     make(map[Kind][]int),
	}
}

// Add registers a parsed directive.
func (r *Registry) Add(d *Directive) {
	idx := len(r.directives)
	r.directives = append(r.directives, d)
	r.byKind[d.Kind] = append(r.byKind[d.Kind], idx)
}

// All returns all registered directives in registration order.
func (r *Registry) All() []*Directive {
	return append([]*Directive(nil), r.directives...)
}

// ByKind returns the directives of the given kind.
func (r *Registry) ByKind(kind Kind) []*Directive {
	idx := r.byKind[kind]
	out := make([]*Directive, len(idx))
	for i, j := range idx {
		out[i] = r.directives[j]
	}
	return out
}

// Len returns the number of registered directives.
func (r *Registry) Len() int {
	return len(r.directives)
}

// Guards returns the compile-guard pragmas skipped during collection.
func (r *Registry) Guards() []tree.NodeID {
	return append([]tree.NodeID(nil), r.guards...)
}

// Collect parses every pragma of prog in document order. Pragmas for which
// isGuard reports true are remembered as guards and not parsed; foreign
// pragmas are ignored. Malformed claw pragmas are returned as *SyntaxError
// and do not stop the collection.
func (r *Registry) Collect(prog *program.Program, isGuard func(raw string) bool) []error {
	var errs []error
	for _, pragma := range prog.Tree.MatchAll(prog.Root(), tree.OpPragma) {
		raw := prog.Tree.Value(pragma)
		if isGuard != nil && isGuard(raw) {
			r.guards = append(r.guards, pragma)
			continue
		}
		d, err := Parse(raw, pragma, prog.Tree.SpanOf(pragma))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if d != nil {
			r.Add(d)
		}
	}
	return errs
}

// Blocks pairs every end directive with the closest open start of the
// matching kind and returns one Block per start directive, in document order.
// End directives without start are reported as *SyntaxError.
func (r *Registry) Blocks() ([]Block, []error) {
	var (
		blocks []Block
		errs   []error
		open   = make(map[Kind][]int) // start kind -> stack of block indices
	)
	for _, d := range r.directives {
		if !d.Kind.IsEnd() {
			blocks = append(blocks, Block{Start: d})
			if d.Kind.EndKind() != KindInvalid {
				open[d.Kind] = append(open[d.Kind], len(blocks)-1)
			}
			continue
		}
		start := startKind(d.Kind)
		stack := open[start]
		if len(stack) == 0 {
			errs = append(errs, &SyntaxError{Line: d.Line(), Msg: d.Kind.String() + " without " + start.String()})
			continue
		}
		top := stack[len(stack)-1]
		open[start] = stack[:len(stack)-1]
		blocks[top].End = d
	}
	return blocks, errs
}

func startKind(end Kind) Kind {
	for k := KindRemove; k <= KindLoopFusion; k++ {
		if k.EndKind() == end {
			return k
		}
	}
	return KindInvalid
}
