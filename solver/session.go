// Package solver answers subtype, assignability, instantiation, inference and
// evaluation queries over the types of one Session.
package solver

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cottand/tsolve/internal/log"
	"github.com/cottand/tsolve/solver/tserr"
	"github.com/cottand/tsolve/solver/types"
)

var logger = log.DefaultLogger.With("section", "solver.session")

// Config bounds and tunes every query of a Session.
type Config struct {
	// Fuel is the number of steps a single query may take.
	Fuel int `yaml:"fuel"`
	// MaxDepth bounds recursion of the judge and the evaluator.
	MaxDepth int `yaml:"maxDepth"`
	// MaxExpansionDepth bounds alias and application hops within one evaluation.
	MaxExpansionDepth      int `yaml:"maxExpansionDepth"`
	TemplateCardinalityCap int `yaml:"templateCardinalityCap"`
	MappedKeyCap           int `yaml:"mappedKeyCap"`

	StrictFunctionTypes        bool `yaml:"strictFunctionTypes"`
	StrictNullChecks           bool `yaml:"strictNullChecks"`
	ExactOptionalPropertyTypes bool `yaml:"exactOptionalPropertyTypes"`

	// Shards is the interner shard count, rounded up to a power of two.
	Shards int `yaml:"shards"`
}

func DefaultConfig() Config {
	return Config{
		Fuel:                   100_000,
		MaxDepth:               100,
		MaxExpansionDepth:      100,
		TemplateCardinalityCap: 100_000,
		MappedKeyCap:           100_000,
		StrictFunctionTypes:    true,
		StrictNullChecks:       true,
		Shards:                 types.DefaultShards,
	}
}

type Option func(*Session)

func WithConfig(c Config) Option {
	return func(s *Session) { s.cfg = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is the database for one compilation: it owns the interner, the
// declarations supplied by the binder and every memo table. All methods are
// safe for concurrent use by many checking workers.
type Session struct {
	id     string
	cfg    Config
	in     *types.Interner
	defs   *definitionStore
	logger *slog.Logger
	lawyer *Lawyer

	judgeCache *types.ShardedMap[judgeKey, Outcome]
	evalMemo   *types.ShardedMap[types.TypeId, evalEntry]
	inflight   *types.ShardedMap[types.TypeId, *atomic.Int32]
	variances  *types.ShardedMap[varianceKey, []Variance]

	markersOnce sync.Once
	markerSub   types.TypeId
	markerSuper types.TypeId

	counters counters

	failMu   sync.Mutex
	failures *tserr.Errors
	closed   atomic.Bool
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		id:     uuid.Must(uuid.NewV7()).String(),
		cfg:    DefaultConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.withDefaults()
	s.logger = s.logger.With("session", s.id)
	s.in = types.NewInterner(s.cfg.Shards)
	s.in.OnInconsistency = func(msg string) {
		s.report(tserr.New(tserr.InternalInconsistency{Message: msg}))
	}
	shards := s.cfg.Shards
	s.defs = newDefinitionStore(shards)
	s.judgeCache = types.NewShardedMap[judgeKey, Outcome](shards, judgeKey.hash)
	s.evalMemo = types.NewShardedMap[types.TypeId, evalEntry](shards, types.HashId)
	s.inflight = types.NewShardedMap[types.TypeId, *atomic.Int32](shards, types.HashId)
	s.variances = types.NewShardedMap[varianceKey, []Variance](shards, varianceKey.hash)
	s.lawyer = NewLawyer(DefaultRules()...)
	s.logger.Debug("session created", "config", s.cfg)
	return s
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Fuel <= 0 {
		c.Fuel = def.Fuel
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if c.MaxExpansionDepth <= 0 {
		c.MaxExpansionDepth = def.MaxExpansionDepth
	}
	if c.TemplateCardinalityCap <= 0 {
		c.TemplateCardinalityCap = def.TemplateCardinalityCap
	}
	if c.MappedKeyCap <= 0 {
		c.MappedKeyCap = def.MappedKeyCap
	}
	if c.Shards <= 0 {
		c.Shards = def.Shards
	}
	return c
}

// Close logs the final statistics. The session must not be used afterwards.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("session closed", "stats", s.Stats(), "tables", s.in.Stats())
}

func (s *Session) ID() string               { return s.id }
func (s *Session) Config() Config           { return s.cfg }
func (s *Session) Interner() *types.Interner { return s.in }

// Classify returns the classification of id's canonical node.
func (s *Session) Classify(id types.TypeId) types.Classification {
	return s.in.Classify(id)
}

// Format renders id for diagnostics.
func (s *Session) Format(id types.TypeId) string {
	return s.in.Format(id)
}

// Failures returns the non-fatal errors recorded by queries so far.
func (s *Session) Failures() []tserr.SolverError {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return append([]tserr.SolverError(nil), s.failures.Errors()...)
}

func (s *Session) report(err tserr.SolverError) {
	s.failMu.Lock()
	s.failures = s.failures.With(err)
	s.failMu.Unlock()
	if err.Code() == tserr.InternalInconsistencyCode {
		s.logger.Error("solver failure", "err", tserr.FormatWithCode(err))
		return
	}
	s.logger.Debug("solver failure", "err", tserr.FormatWithCode(err))
}

type counters struct {
	judgeQueries    atomic.Int64
	judgeCacheHits  atomic.Int64
	cycleHits       atomic.Int64
	fuelExhaustions atomic.Int64
	evaluations     atomic.Int64
	memoHits        atomic.Int64
	deferred        atomic.Int64
	instantiations  atomic.Int64
	inferences      atomic.Int64
}

// Stats is a snapshot of the session counters.
type Stats struct {
	Types           int
	JudgeQueries    int64
	JudgeCacheHits  int64
	CycleHits       int64
	FuelExhaustions int64
	Evaluations     int64
	MemoHits        int64
	Deferred        int64
	Instantiations  int64
	Inferences      int64
}

func (s *Session) Stats() Stats {
	c := &s.counters
	return Stats{
		Types:           s.in.Len(),
		JudgeQueries:    c.judgeQueries.Load(),
		JudgeCacheHits:  c.judgeCacheHits.Load(),
		CycleHits:       c.cycleHits.Load(),
		FuelExhaustions: c.fuelExhaustions.Load(),
		Evaluations:     c.evaluations.Load(),
		MemoHits:        c.memoHits.Load(),
		Deferred:        c.deferred.Load(),
		Instantiations:  c.instantiations.Load(),
		Inferences:      c.inferences.Load(),
	}
}

func (st Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("types", st.Types),
		slog.Int64("judgeQueries", st.JudgeQueries),
		slog.Int64("judgeCacheHits", st.JudgeCacheHits),
		slog.Int64("cycleHits", st.CycleHits),
		slog.Int64("fuelExhaustions", st.FuelExhaustions),
		slog.Int64("evaluations", st.Evaluations),
		slog.Int64("memoHits", st.MemoHits),
		slog.Int64("deferred", st.Deferred),
	)
}
