package ember

// SymbolKey names a symbol in the scope it was declared in. Keys outlive their
// scope; resolving one after the scope closed is reported, never followed.
type SymbolKey struct {
	Name       string
	Generation int
}

// Symbol is a named variable and the storage that holds it.
type Symbol struct {
	Name string
	Type Type
	Loc  Location

	// Storage is the address of the variable: a GlobalAddr for globals, a
	// Slot for locals.
	Storage Value
	Global  bool

	// Pointee is set when a pointer variable was initialized from the
	// address of another named variable.
	Pointee *SymbolKey

	generation int
}

func (s *Symbol) Key() SymbolKey {
	return SymbolKey{Name: s.Name, Generation: s.generation}
}

type Scope struct {
	parent     *Scope
	generation int
	vars       map[string]*Symbol
	closed     bool
}

func (s *Scope) Generation() int {
	return s.generation
}

// ScopeStack belongs to a single generator. The root scope holds the
// globals; each function body pushes a scope on top of it.
type ScopeStack struct {
	current *Scope
	scopes  map[int]*Scope
	next    int
}

func NewScopeStack() *ScopeStack {
	s := &ScopeStack{scopes: make(map[int]*Scope)}
	s.Push()

	return s
}

func (s *ScopeStack) Current() *Scope {
	return s.current
}

// IsGlobal reports whether declarations currently land in the root scope.
func (s *ScopeStack) IsGlobal() bool {
	return s.current.parent == nil
}

func (s *ScopeStack) Push() *Scope {
	sc := &Scope{
		parent:     s.current,
		generation: s.next,
		vars:       make(map[string]*Symbol),
	}

	s.next++
	s.scopes[sc.generation] = sc
	s.current = sc

	return sc
}

// Pop closes the current scope. The root scope is never popped.
func (s *ScopeStack) Pop() {
	if s.current.parent == nil {
		return
	}

	s.current.closed = true
	s.current = s.current.parent
}

// Declare binds sym in the current scope. Shadowing a name from an enclosing
// scope is allowed.
func (s *ScopeStack) Declare(sym *Symbol) error {
	if prev, ok := s.current.vars[sym.Name]; ok {
		return &RedefinitionError{Loc: sym.Loc, What: "variable", Name: prev.Name}
	}

	sym.generation = s.current.generation
	s.current.vars[sym.Name] = sym

	return nil
}

// Lookup finds the innermost visible symbol with the given name.
func (s *ScopeStack) Lookup(name string) (*Symbol, bool) {
	for sc := s.current; sc != nil; sc = sc.parent {
		if sym, ok := sc.vars[name]; ok {
			return sym, true
		}
	}

	return nil, false
}

// Resolve follows a back-reference recorded in an earlier symbol.
func (s *ScopeStack) Resolve(key SymbolKey, loc Location) (*Symbol, error) {
	sc, ok := s.scopes[key.Generation]
	if !ok || sc.closed {
		return nil, semanticErrorf(loc, "'%s' is referenced after its scope has ended", key.Name)
	}

	sym, ok := sc.vars[key.Name]
	if !ok {
		return nil, &UndefinedError{Loc: loc, What: "variable", Name: key.Name}
	}

	return sym, nil
}
