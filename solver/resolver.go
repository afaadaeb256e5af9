package solver

import (
	"sync"

	"github.com/cottand/tsolve/solver/types"
)

// DefKind is the kind of a named declaration.
type DefKind uint8

const (
	DefAlias DefKind = iota + 1
	DefInterface
	DefClass
	DefEnum
)

func (k DefKind) String() string {
	switch k {
	case DefAlias:
		return "type"
	case DefInterface:
		return "interface"
	case DefClass:
		return "class"
	case DefEnum:
		return "enum"
	}
	return "unknown"
}

// Definition is what the binder knows about a named type: its own type
// parameters and the body they scope over. Aliases are transparent; the
// other kinds keep their identity when referenced.
type Definition struct {
	Name       string
	Kind       DefKind
	TypeParams []types.TypeId
	Body       types.TypeId
}

type definitionStore struct {
	defs *types.ShardedMap[types.SymbolId, Definition]

	mu      sync.RWMutex
	globals map[string]types.SymbolId
}

func hashSymbol(s types.SymbolId) uint64 { return types.HashId(types.TypeId(s)) }

func newDefinitionStore(shards int) *definitionStore {
	return &definitionStore{
		defs:    types.NewShardedMap[types.SymbolId, Definition](shards, hashSymbol),
		globals: make(map[string]types.SymbolId),
	}
}

// DeclareSymbol allocates a symbol for a declaration named name.
func (s *Session) DeclareSymbol(name string) types.SymbolId {
	return s.in.NewSymbol(name)
}

// Define attaches a definition to sym. Redefinition replaces the previous
// one; memoized results computed from it are not invalidated, so definitions
// should be supplied before queries that depend on them.
func (s *Session) Define(sym types.SymbolId, def Definition) {
	if def.Name == "" {
		def.Name = s.in.SymbolName(sym)
	}
	s.defs.defs.Put(sym, def)
}

// Definition returns the definition attached to sym.
func (s *Session) Definition(sym types.SymbolId) (Definition, bool) {
	return s.defs.defs.Get(sym)
}

// SetGlobal registers sym as a well-known global such as Array, String,
// Number, Boolean, Function or Object. Globals feed the apparent type of
// primitives, arrays and functions.
func (s *Session) SetGlobal(name string, sym types.SymbolId) {
	s.defs.mu.Lock()
	defer s.defs.mu.Unlock()
	s.defs.globals[name] = sym
}

func (s *Session) global(name string) (types.SymbolId, bool) {
	s.defs.mu.RLock()
	defer s.defs.mu.RUnlock()
	sym, ok := s.defs.globals[name]
	return sym, ok
}

// refDefinition returns the definition behind a Ref node.
func (q *query) refDefinition(id types.TypeId) (types.SymbolId, Definition, bool) {
	ref, ok := q.in.Lookup(id).(types.RefKey)
	if !ok {
		return types.NoSymbol, Definition{}, false
	}
	def, ok := q.s.defs.defs.Get(ref.Symbol)
	return ref.Symbol, def, ok
}

// isAlias reports whether id is a Ref or Application of a type alias.
func (q *query) isAlias(id types.TypeId) bool {
	switch k := q.in.Lookup(id).(type) {
	case types.RefKey:
		def, ok := q.s.defs.defs.Get(k.Symbol)
		return ok && def.Kind == DefAlias
	case types.ApplicationKey:
		return q.isAlias(k.Base)
	}
	return false
}

// expand unfolds one level of a Ref or Application into its structural body.
// It reports false for every other node, and for references without a
// definition.
func (q *query) expand(id types.TypeId) (types.TypeId, bool) {
	switch k := q.in.Lookup(id).(type) {
	case types.RefKey:
		def, ok := q.s.defs.defs.Get(k.Symbol)
		if !ok || def.Body == types.NoType {
			return id, false
		}
		if len(def.TypeParams) == 0 {
			return def.Body, true
		}
		// a bare reference to a generic uses its defaults
		args, ok := q.fillDefaults(def.TypeParams, nil)
		if !ok {
			return id, false
		}
		return q.substitute(def.Body, bindAll(def.TypeParams, args)), true
	case types.ApplicationKey:
		return q.expandApplication(k)
	}
	return id, false
}

func (q *query) expandApplication(k types.ApplicationKey) (types.TypeId, bool) {
	args := q.in.List(k.Args)
	switch base := q.in.Lookup(k.Base).(type) {
	case types.RefKey:
		def, ok := q.s.defs.defs.Get(base.Symbol)
		if !ok || def.Body == types.NoType {
			return types.NoType, false
		}
		full, ok := q.fillDefaults(def.TypeParams, args)
		if !ok {
			return types.NoType, false
		}
		return q.substitute(def.Body, bindAll(def.TypeParams, full)), true
	case types.FunctionKey:
		sig := q.in.Signature(base.Sig)
		full, ok := q.fillDefaults(sig.TypeParams, args)
		if !ok {
			return types.NoType, false
		}
		sub := bindAll(sig.TypeParams, full)
		sig.TypeParams = nil
		return q.in.Function(q.substituteSignature(sig, sub)), true
	case types.ApplicationKey:
		inner, ok := q.expandApplication(base)
		if !ok {
			return types.NoType, false
		}
		return q.expandApplication(types.ApplicationKey{Base: inner, Args: k.Args})
	}
	return types.NoType, false
}

// fillDefaults completes args with parameter defaults, which may mention
// earlier parameters. Missing arguments without a default become unknown.
func (q *query) fillDefaults(params, args []types.TypeId) ([]types.TypeId, bool) {
	if len(args) > len(params) {
		return nil, false
	}
	out := make([]types.TypeId, len(params))
	copy(out, args)
	for i := len(args); i < len(params); i++ {
		def := q.in.ParamInfo(params[i]).Default
		if def == types.NoType {
			out[i] = types.Unknown
			continue
		}
		out[i] = q.substitute(def, bindAll(params[:i], out[:i]))
	}
	return out, true
}

// resolve follows Refs and Applications of aliases until a non-alias node is
// reached, at most MaxExpansionDepth hops. Running out of hops reports false
// and returns id unchanged.
func (q *query) resolve(id types.TypeId) (types.TypeId, bool) {
	cur := id
	for hops := 0; q.isAlias(cur); hops++ {
		if hops >= q.s.cfg.MaxExpansionDepth {
			q.fuel.exhausted++
			q.exhausted("alias expansion")
			return id, false
		}
		if !q.fuel.consume() {
			q.exhausted("alias expansion")
			return id, false
		}
		next, ok := q.expand(cur)
		if !ok {
			return cur, true
		}
		cur = next
	}
	return cur, true
}
