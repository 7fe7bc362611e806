package liquid

// PartialResolver resolves a partial name to its raw template body, for the
// {% render %} directive. Prompts supply this backed by a catalog Snapshot;
// resolution order (project > user > builtin) is the resolver's concern, not
// the renderer's.
type PartialResolver interface {
	ResolvePartial(name string) (body string, ok bool)
}

// Scope is the variable environment a template renders against. It layers
// four sources, consulted in §4.3's precedence order (highest first):
// template-local capture/assign, ambient ExecutionContext variables,
// state-result dotted paths, and argument defaults. Locals and ambient are
// both represented as mutable maps on Scope; defaults are seeded into
// ambient at construction time by the caller (C6), so Scope itself only
// needs to know about locals vs. everything else.
type Scope struct {
	locals map[string]Value
	parent *Scope
	vars   map[string]Value

	// Strict, when true, turns an unresolved variable reference into a
	// RenderError::UndefinedVariable instead of silently resolving to nil.
	Strict bool

	// cycleState tracks {% cycle %} group positions across the lifetime of
	// one top-level render, shared by all child scopes.
	cycleState map[string]int
}

// NewScope creates a root scope seeded with vars (ambient
// ExecutionContext.variables plus any state-result/default bindings the
// caller has already merged in).
func NewScope(vars map[string]Value) *Scope {
	if vars == nil {
		vars = map[string]Value{}
	}
	return &Scope{
		vars:       vars,
		locals:     map[string]Value{},
		cycleState: map[string]int{},
	}
}

// Child creates a scope for a nested block (for-loop body, capture body, a
// rendered partial) that inherits the parent's variables but writes locals
// of its own. Assign/capture inside a child are visible in the parent too,
// matching Liquid's non-block-scoped assign semantics.
func (s *Scope) Child() *Scope {
	return &Scope{
		parent:     s,
		locals:     map[string]Value{},
		vars:       s.vars,
		Strict:     s.Strict,
		cycleState: s.cycleState,
	}
}

// Lookup resolves a variable by its first path segment: locals (searching
// up the parent chain) take precedence over ambient vars.
func (s *Scope) Lookup(name string) (Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.locals[name]; ok {
			return v, true
		}
	}
	if v, ok := s.vars[name]; ok {
		return v, true
	}
	return nil, false
}

// Set binds name for assign/capture in the root scope's vars map.
// Per Liquid semantics this is visible to the parent scope too, since
// locals are only used to shadow for-loop variables and captures; ordinary
// `assign` writes go to the nearest scope that already resolves to a
// writable tier. To keep this simple and matching Liquid's non-block-scoped
// `assign`, Set always writes into the root scope's vars map unless this is
// a for-loop iteration variable (see SetLocal).
func (s *Scope) Set(name string, v Value) {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	root.vars[name] = v
}

// SetLocal binds name only in this scope (used for for-loop iteration
// variables and forloop.*, which must not leak to the parent).
func (s *Scope) SetLocal(name string, v Value) {
	s.locals[name] = v
}
