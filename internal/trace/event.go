package trace

import "time"

// Kind tells span boundaries from instant points.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	}
	return "unknown"
}

// Scope is the granularity of an event; coarser scopes have lower values.
type Scope uint8

const (
	ScopeDriver         Scope = iota + 1 // one document run
	ScopePass                            // transformation groups, directive collection
	ScopeTransformation                  // analysis and application of one directive
	ScopeNode                            // clone, hoist, demote and friends
)

var scopeNames = [...]string{
	ScopeDriver:         "driver",
	ScopePass:           "pass",
	ScopeTransformation: "transformation",
	ScopeNode:           "node",
}

func (s Scope) String() string {
	if s > 0 && int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one recorded span boundary or point. A stream tracer renumbers
// Seq so its output is in order.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for a root span
	Name     string // "transform", "loop-extract", "routine"
	Detail   string
	Extra    map[string]string
}
