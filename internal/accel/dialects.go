package accel

type none struct{ base }

func (none) Dialect() Dialect        { return DialectNone }
func (none) StartParallel() string   { return "" }
func (none) EndParallel() string     { return "" }
func (none) StartLoop(int) string    { return "" }
func (none) EndLoop() string         { return "" }
func (none) Single(string) string    { return "" }
func (none) Private([]string) string { return "" }
func (none) Present([]string) string { return "" }
func (none) Routine() string         { return "" }

type openACC struct{ base }

func (openACC) Dialect() Dialect { return DialectOpenACC }

func (g openACC) StartParallel() string { return g.directive("parallel") }

func (g openACC) EndParallel() string { return g.directive("end", "parallel") }

func (g openACC) StartLoop(collapse int) string {
	return g.directive("loop") + collapseClause(collapse)
}

// EndLoop is empty: an acc loop applies to the following loop only.
func (openACC) EndLoop() string { return "" }

func (g openACC) Single(clause string) string { return g.directive(clause) }

func (openACC) Private(vars []string) string { return clauseList("private", vars) }

func (openACC) Present(vars []string) string { return clauseList("present", vars) }

func (g openACC) Routine() string { return g.directive("routine", "seq") }

type openMP struct{ base }

func (openMP) Dialect() Dialect { return DialectOpenMP }

func (g openMP) StartParallel() string {
	if g.target == TargetGPU {
		return g.directive("target", "parallel")
	}
	return g.directive("parallel")
}

func (g openMP) EndParallel() string {
	if g.target == TargetGPU {
		return g.directive("end", "target", "parallel")
	}
	return g.directive("end", "parallel")
}

func (g openMP) StartLoop(collapse int) string {
	return g.directive("do") + collapseClause(collapse)
}

func (g openMP) EndLoop() string { return g.directive("end", "do") }

func (g openMP) Single(clause string) string { return g.directive(clause) }

func (openMP) Private(vars []string) string { return clauseList("private", vars) }

// Present is empty: OpenMP has no present clause.
func (openMP) Present([]string) string { return "" }

func (g openMP) Routine() string { return g.directive("declare", "target") }
