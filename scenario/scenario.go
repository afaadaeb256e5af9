// Package scenario runs solver queries described in YAML files. A scenario
// declares types in a TypeScript-like syntax, then lists subtype,
// assignability, evaluation, instantiation and inference queries against
// them, optionally with the expected answer.
package scenario

import (
	"bytes"
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cottand/tsolve/solver"
)

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Config overrides the solver defaults field by field.
	Config       solver.Config `yaml:"config"`
	Declarations string        `yaml:"declarations"`
	Queries      []Query       `yaml:"queries"`
}

// Query is one question to the solver. Exactly one of the query fields must
// be set.
type Query struct {
	// Subtype relates [source, target] with the sound judge.
	Subtype []string `yaml:"subtype,omitempty"`
	// Assignable relates [source, target] under the compatibility rules.
	Assignable []string `yaml:"assignable,omitempty"`
	// Explain names the rule that decides an assignability query.
	Explain []string `yaml:"explain,omitempty"`
	// Eval evaluates a type expression.
	Eval string `yaml:"eval,omitempty"`
	// Instantiate applies [generic, args...] after checking the arguments.
	Instantiate []string    `yaml:"instantiate,omitempty"`
	Infer       *InferQuery `yaml:"infer,omitempty"`

	// Policy selects the variance policy of a subtype query: sound (the
	// default) or lawyer.
	Policy string `yaml:"policy,omitempty"`
	Fresh  bool   `yaml:"fresh,omitempty"`
	Const  bool   `yaml:"const,omitempty"`

	Expect string `yaml:"expect,omitempty"`
}

// InferQuery infers the type arguments of a call to a generic function.
type InferQuery struct {
	Fn         string   `yaml:"fn"`
	Args       []string `yaml:"args"`
	Contextual string   `yaml:"contextual,omitempty"`
}

const (
	KindSubtype     = "subtype"
	KindAssignable  = "assignable"
	KindExplain     = "explain"
	KindEval        = "eval"
	KindInstantiate = "instantiate"
	KindInfer       = "infer"
)

func (q Query) Kind() (string, error) {
	var kinds []string
	if q.Subtype != nil {
		kinds = append(kinds, KindSubtype)
	}
	if q.Assignable != nil {
		kinds = append(kinds, KindAssignable)
	}
	if q.Explain != nil {
		kinds = append(kinds, KindExplain)
	}
	if q.Eval != "" {
		kinds = append(kinds, KindEval)
	}
	if q.Instantiate != nil {
		kinds = append(kinds, KindInstantiate)
	}
	if q.Infer != nil {
		kinds = append(kinds, KindInfer)
	}
	switch len(kinds) {
	case 0:
		return "", errors.New("query has no kind")
	case 1:
		return kinds[0], nil
	}
	return "", errors.Errorf("query has more than one kind: %s", strings.Join(kinds, ", "))
}

func (q Query) validate() error {
	kind, err := q.Kind()
	if err != nil {
		return err
	}
	pair := func(operands []string) error {
		if len(operands) != 2 {
			return errors.Errorf("%s takes [source, target], got %d operand(s)", kind, len(operands))
		}
		return nil
	}
	switch kind {
	case KindSubtype:
		if q.Policy != "" && q.Policy != "sound" && q.Policy != "lawyer" {
			return errors.Errorf("unknown policy %q", q.Policy)
		}
		return pair(q.Subtype)
	case KindAssignable:
		return pair(q.Assignable)
	case KindExplain:
		return pair(q.Explain)
	case KindInstantiate:
		if len(q.Instantiate) == 0 {
			return errors.New("instantiate takes [generic, args...]")
		}
	case KindInfer:
		if q.Infer.Fn == "" {
			return errors.New("infer needs fn")
		}
	}
	return nil
}

// Parse decodes a scenario. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	sc := Scenario{Config: solver.DefaultConfig()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, errors.Wrap(err, "could not decode scenario")
	}
	for i, q := range sc.Queries {
		if err := q.validate(); err != nil {
			return nil, errors.Wrapf(err, "query %d", i+1)
		}
	}
	return &sc, nil
}

// Load reads the scenario at name in fsys. A scenario without a name is
// named after its file.
func Load(fsys fs.FS, name string) (*Scenario, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read scenario %s", name)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", name)
	}
	if sc.Name == "" {
		base := path.Base(name)
		sc.Name = strings.TrimSuffix(base, path.Ext(base))
	}
	return sc, nil
}
