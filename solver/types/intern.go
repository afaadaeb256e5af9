package types

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cottand/tsolve/internal/log"
)

var logger = log.DefaultLogger.With("section", "solver.interner")

// DefaultShards is the shard count used when none is configured.
const DefaultShards = 64

// Interner is the canonical, hash-consed store of types for one session.
// It is safe for concurrent use: inserts lock a single shard chosen by key
// hash, and lookups read without locking.
type Interner struct {
	bits   uint
	shards []typeShard

	lists      *valueStore[[]TypeId]
	shapes     *valueStore[ObjectShape]
	signatures *valueStore[Signature]
	sigLists   *valueStore[[]SignatureId]
	callables  *valueStore[CallableShape]
	tuples     *valueStore[[]TupleElem]
	templates  *valueStore[[]TemplateSpan]

	params   *ShardedMap[TypeId, ParamInfo]
	freeMemo *ShardedMap[TypeId, []TypeId]

	symMu    sync.RWMutex
	symNames []string

	// OnInconsistency receives corrupt-handle reports in release builds.
	OnInconsistency func(msg string)
}

type typeShard struct {
	mu    sync.RWMutex
	index map[Key]TypeId
	keys  chunkedVec[Key]
}

// ParamInfo holds the bounds of a type parameter.
type ParamInfo struct {
	Constraint TypeId
	Default    TypeId
}

var reservedKeys = [reservedCount]Key{
	Any:         IntrinsicKey{IntrinsicAny},
	Unknown:     IntrinsicKey{IntrinsicUnknown},
	Never:       IntrinsicKey{IntrinsicNever},
	Void:        IntrinsicKey{IntrinsicVoid},
	Null:        IntrinsicKey{IntrinsicNull},
	Undefined:   IntrinsicKey{IntrinsicUndefined},
	Boolean:     IntrinsicKey{IntrinsicBoolean},
	Number:      IntrinsicKey{IntrinsicNumber},
	String:      IntrinsicKey{IntrinsicString},
	BigInt:      IntrinsicKey{IntrinsicBigInt},
	Symbol:      IntrinsicKey{IntrinsicSymbol},
	Object:      IntrinsicKey{IntrinsicObject},
	Function:    IntrinsicKey{IntrinsicFunction},
	Error:       IntrinsicKey{IntrinsicError},
	True:        LiteralKey{BooleanLiteral(true)},
	False:       LiteralKey{BooleanLiteral(false)},
	EmptyString: LiteralKey{StringLiteral("")},
}

var reservedIds = func() map[Key]TypeId {
	m := make(map[Key]TypeId, len(reservedKeys))
	for i, k := range reservedKeys {
		if k != nil {
			m[k] = TypeId(i)
		}
	}
	return m
}()

// NewInterner creates an interner with the given number of shards, rounded
// up to a power of two.
func NewInterner(shards int) *Interner {
	if shards <= 0 {
		shards = DefaultShards
	}
	b := shardBits(shards)
	in := &Interner{
		bits:       b,
		shards:     make([]typeShard, 1<<b),
		lists:      newValueStore[[]TypeId](b),
		shapes:     newValueStore[ObjectShape](b),
		signatures: newValueStore[Signature](b),
		sigLists:   newValueStore[[]SignatureId](b),
		callables:  newValueStore[CallableShape](b),
		tuples:     newValueStore[[]TupleElem](b),
		templates:  newValueStore[[]TemplateSpan](b),
		params:     NewShardedMap[TypeId, ParamInfo](shards, HashId),
		freeMemo:   NewShardedMap[TypeId, []TypeId](shards, HashId),
		symNames:   []string{""},
	}
	for i := range in.shards {
		in.shards[i].index = make(map[Key]TypeId)
	}
	return in
}

// Intern returns the canonical handle for k. It is idempotent.
// Union and intersection keys are taken as given; use Union and
// Intersection to build normalized ones.
func (in *Interner) Intern(k Key) TypeId {
	if id, ok := reservedIds[k]; ok {
		return id
	}
	h := k.hash()
	shard := uint32(h & (1<<in.bits - 1))
	sh := &in.shards[shard]

	sh.mu.RLock()
	id, ok := sh.index[k]
	sh.mu.RUnlock()
	if ok {
		return id
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if id, ok := sh.index[k]; ok {
		return id
	}
	local := sh.keys.push(k)
	id = reservedCount + TypeId(local<<in.bits|shard)
	sh.index[k] = id
	return id
}

// Lookup returns the key of id. An unknown handle is an internal
// inconsistency and yields the error intrinsic.
func (in *Interner) Lookup(id TypeId) Key {
	if id < reservedCount {
		if id == NoType {
			return in.inconsistent("lookup of NoType")
		}
		return reservedKeys[id]
	}
	raw := uint32(id - reservedCount)
	shard := raw & (1<<in.bits - 1)
	k, ok := in.shards[shard].keys.get(raw >> in.bits)
	if !ok || k == nil {
		return in.inconsistent(fmt.Sprintf("lookup of unknown type handle %d", id))
	}
	return k
}

// KindOf is a shorthand for Lookup(id).Kind().
func (in *Interner) KindOf(id TypeId) Kind {
	if id == NoType {
		return KindInvalid
	}
	return in.Lookup(id).Kind()
}

func (in *Interner) inconsistent(msg string) Key {
	if debugMode {
		panic("internal inconsistency: " + msg)
	}
	logger.Error("internal inconsistency", "msg", msg)
	if in.OnInconsistency != nil {
		in.OnInconsistency(msg)
	}
	return reservedKeys[Error]
}

// Len is the number of non-reserved interned types.
func (in *Interner) Len() int {
	n := 0
	for i := range in.shards {
		in.shards[i].mu.RLock()
		n += len(in.shards[i].index)
		in.shards[i].mu.RUnlock()
	}
	return n
}

// InternList interns an ordered list of types.
func (in *Interner) InternList(ids []TypeId) ListId {
	if len(ids) == 0 {
		return 0
	}
	return ListId(in.lists.intern(listFingerprint(ids), append([]TypeId(nil), ids...)))
}

// List returns the members of an interned list. The result must not be modified.
func (in *Interner) List(id ListId) []TypeId {
	if id == 0 {
		return nil
	}
	l, ok := in.lists.get(uint32(id))
	if !ok {
		in.inconsistent(fmt.Sprintf("unknown list %d", id))
	}
	return l
}

func (in *Interner) InternShape(s ObjectShape) ShapeId {
	s = s.canonical()
	return ShapeId(in.shapes.intern(s.fingerprint(), s))
}

func (in *Interner) Shape(id ShapeId) ObjectShape {
	s, ok := in.shapes.get(uint32(id))
	if !ok && id != 0 {
		in.inconsistent(fmt.Sprintf("unknown shape %d", id))
	}
	return s
}

func (in *Interner) InternSignature(s Signature) SignatureId {
	s.TypeParams = append([]TypeId(nil), s.TypeParams...)
	s.Params = append([]Param(nil), s.Params...)
	if s.Return == NoType {
		s.Return = Void
	}
	return SignatureId(in.signatures.intern(s.fingerprint(), s))
}

func (in *Interner) Signature(id SignatureId) Signature {
	s, ok := in.signatures.get(uint32(id))
	if !ok {
		in.inconsistent(fmt.Sprintf("unknown signature %d", id))
		return Signature{Return: Error}
	}
	return s
}

func (in *Interner) InternSignatureList(ids []SignatureId) SignatureListId {
	if len(ids) == 0 {
		return 0
	}
	return SignatureListId(in.sigLists.intern(signatureListFingerprint(ids), append([]SignatureId(nil), ids...)))
}

func (in *Interner) SignatureList(id SignatureListId) []SignatureId {
	l, _ := in.sigLists.get(uint32(id))
	return l
}

func (in *Interner) InternCallable(c CallableShape) CallableId {
	c = c.canonical()
	c.Calls = append([]SignatureId(nil), c.Calls...)
	c.Constructs = append([]SignatureId(nil), c.Constructs...)
	return CallableId(in.callables.intern(c.fingerprint(), c))
}

func (in *Interner) CallableShape(id CallableId) CallableShape {
	c, ok := in.callables.get(uint32(id))
	if !ok && id != 0 {
		in.inconsistent(fmt.Sprintf("unknown callable %d", id))
	}
	return c
}

func (in *Interner) InternTuple(elems []TupleElem) TupleId {
	if len(elems) == 0 {
		return 0
	}
	return TupleId(in.tuples.intern(tupleFingerprint(elems), append([]TupleElem(nil), elems...)))
}

func (in *Interner) TupleElems(id TupleId) []TupleElem {
	l, _ := in.tuples.get(uint32(id))
	return l
}

func (in *Interner) InternTemplate(spans []TemplateSpan) TemplateId {
	return TemplateId(in.templates.intern(templateFingerprint(spans), append([]TemplateSpan(nil), spans...)))
}

func (in *Interner) TemplateSpans(id TemplateId) []TemplateSpan {
	l, _ := in.templates.get(uint32(id))
	return l
}

// SetParamInfo records the constraint and default of a type parameter.
func (in *Interner) SetParamInfo(id TypeId, info ParamInfo) {
	in.params.Put(id, info)
}

// ParamInfo returns the bounds recorded for a type parameter. A parameter
// without a constraint reports unknown.
func (in *Interner) ParamInfo(id TypeId) ParamInfo {
	info, _ := in.params.Get(id)
	if info.Constraint == NoType {
		info.Constraint = Unknown
	}
	return info
}

// NewSymbol allocates a fresh symbol carrying a display name.
func (in *Interner) NewSymbol(name string) SymbolId {
	in.symMu.Lock()
	defer in.symMu.Unlock()
	in.symNames = append(in.symNames, name)
	return SymbolId(len(in.symNames) - 1)
}

// SymbolName returns the display name of a symbol.
func (in *Interner) SymbolName(s SymbolId) string {
	in.symMu.RLock()
	defer in.symMu.RUnlock()
	if int(s) < len(in.symNames) {
		return in.symNames[s]
	}
	return fmt.Sprintf("#%d", s)
}

// Stats is a snapshot of table sizes, logged by sessions on close.
func (in *Interner) Stats() slog.Value {
	return slog.GroupValue(
		slog.Int("types", in.Len()),
		slog.Int("lists", in.lists.len()),
		slog.Int("shapes", in.shapes.len()),
		slog.Int("signatures", in.signatures.len()),
	)
}
