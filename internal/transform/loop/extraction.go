package loop

import (
	"fmt"
	"strconv"
	"strings"

	"pragmax/internal/accel"
	"pragmax/internal/diag"
	"pragmax/internal/directive"
	"pragmax/internal/program"
	"pragmax/internal/symbols"
	"pragmax/internal/trace"
	"pragmax/internal/transform"
	"pragmax/internal/tree"
	"pragmax/internal/types"
)

// ExtractedSuffix separates the callee name from the run counter in the
// name of an extracted function.
const ExtractedSuffix = "_extracted_"

// Extraction is the loop-extract transformation.
type Extraction struct {
	transform.Base

	// set by Analyze
	callStmt tree.NodeID
	call     tree.NodeID
	caller   *program.Function
	callee   *program.Function
	loop     tree.NodeID
	args     map[string]tree.NodeID
}

// NewExtraction validates the directive clauses. A missing range or a
// variable mapped more than once is an *transform.IllegalDirectiveError.
func NewExtraction(dir *directive.Directive) (*Extraction, error) {
	if dir.Range == nil {
		return nil, &transform.IllegalDirectiveError{
			Line: dir.Line(),
			Code: diag.DirMissingRange,
			Msg:  "loop-extract requires a range clause",
		}
	}
	seenArg := make(map[string]bool)
	seenFct := make(map[string]bool)
	for _, m := range dir.Mappings {
		if m.Dimensions() == 0 {
			return nil, &transform.IllegalDirectiveError{
				Line: dir.Line(),
				Code: diag.DirBadClause,
				Msg:  fmt.Sprintf("mapping %s has no index variable", m),
			}
		}
		for _, v := range m.Mapped {
			arg, fct := strings.ToLower(v.Arg), strings.ToLower(v.Fct)
			if seenArg[arg] || seenFct[fct] {
				return nil, &transform.IllegalDirectiveError{
					Line: dir.Line(),
					Code: diag.DirDuplicateMapping,
					Msg:  fmt.Sprintf("Mapped variable %s is used in more than one mapping", v),
				}
			}
			seenArg[arg], seenFct[fct] = true, true
		}
	}
	return &Extraction{Base: transform.NewBase(dir, nil)}, nil
}

// Analyze locates the call after the directive, its caller and callee and
// the loop matching the directive range, and checks the mapped arguments.
func (e *Extraction) Analyze(prog *program.Program, _ *transform.Translator) bool {
	t := prog.Tree
	d := e.Start

	stmt := t.NextSibling(d.Pragma)
	if t.Op(stmt) != tree.OpExprStatement {
		return e.Reject(prog, diag.TrNoCall, "No function call detected after loop-extract")
	}
	call := t.MatchDescendant(stmt, tree.OpFunctionCall)
	if !call.IsValid() {
		return e.Reject(prog, diag.TrNoCall, "No function call detected after loop-extract")
	}
	caller := prog.EnclosingFunction(call)
	if caller == nil {
		return e.Reject(prog, diag.TrNoEnclosingFunction, "No function around the fct call")
	}
	callee := prog.FunctionDefinition(call)
	if callee == nil {
		return e.Reject(prog, diag.TrNoDefinition,
			"Could not locate the function definition for: "+t.Value(prog.CallName(call)))
	}
	first := t.MatchDescendant(callee.Body(), tree.OpDoStatement)
	if !first.IsValid() {
		return e.Reject(prog, diag.TrNoLoop, "No loop found in function")
	}
	loop := findLoop(t, first, *d.Range)
	if !loop.IsValid() {
		return e.Reject(prog, diag.TrRangeMismatch, "Iteration range is different than the loop to be extracted")
	}

	args := make(map[string]tree.NodeID)
	for _, m := range d.Mappings {
		for _, v := range m.Mapped {
			arg := findArg(prog, call, v.Arg)
			if !arg.IsValid() {
				return e.Reject(prog, diag.TrMappedVarNotFound,
					fmt.Sprintf("Mapped variable %s not found in function call arguments", v.Arg))
			}
			args[v.Arg] = arg
		}
	}

	e.callStmt, e.call = stmt, call
	e.caller, e.callee = caller, callee
	e.loop, e.args = loop, args
	return true
}

// findLoop scans from first through its following sibling loops and returns
// the first one iterating over rng.
func findLoop(t *tree.Tree, first tree.NodeID, rng directive.Range) tree.NodeID {
	for do := first; do.IsValid(); do = t.MatchSibling(do, tree.OpDoStatement) {
		if rng.Matches(t, do) {
			return do
		}
	}
	return tree.NoNodeID
}

// findArg returns the call argument referring to name: a bare variable or an
// array reference over it.
func findArg(prog *program.Program, call tree.NodeID, name string) tree.NodeID {
	t := prog.Tree
	for _, arg := range prog.CallArguments(call) {
		switch t.Op(arg) {
		case tree.OpVar:
			if strings.EqualFold(t.Value(arg), name) {
				return arg
			}
		case tree.OpArrayRef:
			if strings.EqualFold(t.Value(prog.ArrayRefBase(arg)), name) {
				return arg
			}
		}
	}
	return tree.NoNodeID
}

// mappedArg is one mapped variable pair resolved against the program.
type mappedArg struct {
	mapping directive.Mapping
	v       directive.MappingVar
	arg     tree.NodeID // bare variable argument, NoNodeID for other shapes
	demote  bool
	elem    types.TypeID
}

// plan checks every condition that would otherwise fail after the tree has
// been changed: argument ranks, mapped parameters and index declarations.
func (e *Extraction) plan(prog *program.Program) ([]mappedArg, error) {
	t := prog.Tree
	var out []mappedArg
	for _, m := range e.Start.Mappings {
		for _, v := range m.Mapped {
			ma := mappedArg{mapping: m, v: v}
			if arg := e.args[v.Arg]; t.Op(arg) == tree.OpVar {
				typ, ok := e.caller.DeclaredType(t.Value(arg))
				if !ok {
					typ = t.TypeOf(arg)
				}
				if dims := prog.Types.Dimensions(typ); dims < m.Dimensions() {
					return nil, e.Illegal(diag.TrDimensionMismatch, fmt.Sprintf(
						"Mapping dimensions too big. Mapping %s is wrong: argument %s has %d dimension(s)",
						m, v.Arg, dims))
				}
				ma.arg = arg
				for _, idx := range m.Mapping {
					if err := e.checkDeclared(idx.Arg); err != nil {
						return nil, err
					}
				}
			}
			paramType, ok := e.callee.DeclaredType(v.Fct)
			if !ok {
				return nil, e.Illegal(diag.TrMappedVarNotFound,
					fmt.Sprintf("Mapped variable %s is not declared in %s", v.Fct, e.callee.Name()))
			}
			if prog.Types.Dimensions(paramType) == m.Dimensions() {
				ma.demote = true
				ma.elem = prog.Types.Element(paramType)
			}
			out = append(out, ma)
		}
	}
	for _, name := range loopVariables(t, e.loop) {
		if err := e.checkDeclared(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkDeclared requires name in the caller or in the callee it would be
// copied from.
func (e *Extraction) checkDeclared(name string) error {
	if e.caller.Decls.Has(name) || e.caller.Symbols.Has(name) || e.callee.Decls.Has(name) {
		return nil
	}
	return e.Illegal(diag.TrUndeclaredIndex,
		fmt.Sprintf("Variable %s is declared neither in %s nor in %s", name, e.caller.Name(), e.callee.Name()))
}

// loopVariables lists the induction variable and the variables used by the
// bounds of do, without duplicates.
func loopVariables(t *tree.Tree, do tree.NodeID) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(id tree.NodeID) bool {
		if t.Op(id) == tree.OpVar && !seen[t.Value(id)] {
			seen[t.Value(id)] = true
			names = append(names, t.Value(id))
		}
		return true
	}
	add(t.MatchDirectDescendant(do, tree.OpVar))
	t.Walk(t.MatchDirectDescendant(do, tree.OpIndexRange), add)
	return names
}

// Transform extracts the loop. Every fatal condition is checked before the
// first change, so an error leaves the tree as it was.
func (e *Extraction) Transform(prog *program.Program, tr *transform.Translator, _ transform.Transformation) error {
	t := prog.Tree
	d := e.Start
	span := trace.Begin(tr.Tracer(), trace.ScopeNode, "extract", tr.SpanID())
	defer span.End("")

	mapped, err := e.plan(prog)
	if err != nil {
		return err
	}

	// Clone the callee under a fresh name and type.
	newName := e.extractedName(prog, tr)
	newType, err := prog.Types.Derive(e.callee.Type(), func(ft *types.Type) {
		for i, p := range ft.Params {
			for _, ma := range mapped {
				if ma.demote && strings.EqualFold(p.Name, ma.v.Fct) {
					ft.Params[i].Type = ma.elem
				}
			}
		}
	})
	if err != nil {
		return e.fail("derive function type", err)
	}
	clone, err := prog.CloneFunction(e.callee, newName, newType)
	if err != nil {
		return e.fail("clone "+e.callee.Name(), err)
	}
	if err := prog.InsertFunctionAfter(e.callee, clone); err != nil {
		return e.fail("insert "+newName, err)
	}
	if err := prog.Globals.Add(symbols.Symbol{Name: newName, Type: newType, Kind: symbols.KindFunction}); err != nil {
		return e.fail("register "+newName, err)
	}
	trace.Point(tr.Tracer(), trace.ScopeNode, "routine", newName, span.ID(),
		"from", e.callee.Name(), "type", prog.Types.Key(newType))

	// Replace the loop of the clone by its body.
	cloneLoop := findLoop(t, t.MatchDescendant(clone.Body(), tree.OpDoStatement), *d.Range)
	if !cloneLoop.IsValid() {
		return e.fail("locate loop in "+newName, nil)
	}
	for _, stmt := range t.Children(prog.LoopBody(cloneLoop)) {
		if err := t.InsertBefore(cloneLoop, stmt); err != nil {
			return e.fail("hoist loop body", err)
		}
	}
	t.Delete(cloneLoop)

	// Wrap the call site in a copy of the loop.
	for _, name := range loopVariables(t, e.loop) {
		if _, err := prog.CopyDeclaration(e.callee, e.caller, name); err != nil {
			return e.fail("declare "+name+" in "+e.caller.Name(), err)
		}
	}
	do := prog.NewDoStatement(
		t.Clone(t.MatchDirectDescendant(e.loop, tree.OpVar)),
		t.Clone(t.MatchDirectDescendant(e.loop, tree.OpIndexRange)),
		d.Span,
	)
	if err := t.InsertAfter(d.Pragma, do); err != nil {
		return e.fail("insert loop", err)
	}
	if err := t.Append(prog.LoopBody(do), e.callStmt); err != nil {
		return e.fail("move call into loop", err)
	}
	name := prog.CallName(e.call)
	t.SetValue(name, newName)
	t.SetType(name, newType)

	for _, ma := range mapped {
		if ma.arg.IsValid() {
			if err := e.indexArgument(prog, ma); err != nil {
				return err
			}
			trace.Point(tr.Tracer(), trace.ScopeNode, "mapping", ma.mapping.String(), span.ID(),
				"arg", ma.v.Arg, "fct", ma.v.Fct)
		}
		if ma.demote {
			if err := e.demote(prog, clone, ma); err != nil {
				return err
			}
		}
	}

	// Accelerator directives, fusion and routine requests.
	inserted, err := accel.Annotate(prog, tr.Generator(), d, do, do)
	if err != nil {
		return e.fail("annotate loop", err)
	}
	if d.Routine {
		if _, err := accel.AnnotateRoutine(prog, tr.Generator(), clone, d); err != nil {
			return e.fail("annotate routine", err)
		}
	}
	if d.Fusion {
		if _, err := tr.AddTransformation(prog, newQueuedFusion(d, do, inserted)); err != nil {
			return e.fail("queue fusion", err)
		}
	}
	e.RemovePragma(prog)
	span.WithExtra("routine", newName)
	return nil
}

// extractedName draws counter values until the name is free.
func (e *Extraction) extractedName(prog *program.Program, tr *transform.Translator) string {
	for {
		name := e.callee.Name() + ExtractedSuffix + strconv.Itoa(tr.NextTransformationCounter())
		if !prog.Globals.Has(name) {
			return name
		}
	}
}

// indexArgument turns the bare argument x into x(i, ...) over the mapping
// variables, declaring them in the caller when needed.
func (e *Extraction) indexArgument(prog *program.Program, ma mappedArg) error {
	t := prog.Tree
	sp := t.SpanOf(ma.arg)
	indices := make([]tree.NodeID, 0, ma.mapping.Dimensions())
	for _, idx := range ma.mapping.Mapping {
		if _, err := prog.CopyDeclaration(e.callee, e.caller, idx.Arg); err != nil {
			return e.fail("declare "+idx.Arg+" in "+e.caller.Name(), err)
		}
		typ, _ := e.caller.DeclaredType(idx.Arg)
		indices = append(indices, prog.NewVar(e.caller.Spelling(idx.Arg), typ, sp))
	}
	base := t.Clone(ma.arg)
	elem := prog.Types.Element(t.TypeOf(ma.arg))
	ref := prog.NewArrayRef(base, elem, indices, sp)
	if err := t.InsertBefore(ma.arg, ref); err != nil {
		return e.fail("index argument "+ma.v.Arg, err)
	}
	t.Delete(ma.arg)
	return nil
}

// demote makes the mapped parameter a scalar in the clone and rewrites the
// array references indexed exactly by the mapping variables.
func (e *Extraction) demote(prog *program.Program, clone *program.Function, ma mappedArg) error {
	t := prog.Tree
	old, ok := clone.Decls.Get(ma.v.Fct)
	if !ok {
		return e.fail("no declaration of "+ma.v.Fct+" in "+clone.Name(), nil)
	}
	if err := clone.Decls.Replace(prog.NewVarDecl(symbols.DeclName(t, old), ma.elem, t.SpanOf(old)), ma.v.Fct); err != nil {
		return e.fail("demote "+ma.v.Fct, err)
	}
	if err := clone.Symbols.SetType(ma.v.Fct, ma.elem); err != nil {
		return e.fail("demote "+ma.v.Fct, err)
	}

	for _, ref := range t.MatchAll(clone.Body(), tree.OpArrayRef) {
		if !t.IsLive(ref) {
			continue
		}
		base := prog.ArrayRefBase(ref)
		if !strings.EqualFold(t.Value(base), ma.v.Fct) || !indexedBy(t, ref, ma.mapping) {
			continue
		}
		scalar := t.Clone(base)
		t.SetType(scalar, ma.elem)
		if err := t.InsertBefore(ref, scalar); err != nil {
			return e.fail("rewrite reference to "+ma.v.Fct, err)
		}
		t.Delete(ref)
	}
	return nil
}

// indexedBy reports whether every index of ref is a bare variable equal, in
// order, to the callee side of the mapping variables.
func indexedBy(t *tree.Tree, ref tree.NodeID, m directive.Mapping) bool {
	var indices []tree.NodeID
	for _, child := range t.Children(ref) {
		if t.Op(child) == tree.OpArrayIndex {
			indices = append(indices, child)
		}
	}
	if len(indices) != m.Dimensions() {
		return false
	}
	for i, ai := range indices {
		v := t.Child(ai, 0)
		if t.Op(v) != tree.OpVar || !strings.EqualFold(t.Value(v), m.Mapping[i].Fct) {
			return false
		}
	}
	return true
}

func (e *Extraction) fail(msg string, err error) error {
	ite := e.Illegal(diag.TrIllegal, msg)
	ite.Err = err
	return ite
}
