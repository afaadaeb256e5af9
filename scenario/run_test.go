package scenario

import (
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cottand/tsolve/solver"
)

func TestScenariosMatchGolden(t *testing.T) {
	fsys := os.DirFS("testdata")
	entries, err := os.ReadDir("testdata")
	require.NoError(t, err)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		t.Run(entry.Name(), func(t *testing.T) {
			sc, err := Load(fsys, entry.Name())
			require.NoError(t, err)
			res := RunWithGolden(t, sc, "testdata/golden")
			assert.Empty(t, res.Failed())
		})
	}
}

func TestRunReportsMismatches(t *testing.T) {
	sc, err := Parse([]byte(`
name: mismatch
queries:
  - assignable: ["1", string]
    expect: related
  - eval: "keyof { a: string }"
`))
	require.NoError(t, err)
	res, err := Run(sc)
	require.NoError(t, err)

	require.Len(t, res.Failed(), 1)
	assert.Equal(t, []string{
		"assignable 1 -> string => not-related  FAIL expected related",
		`eval keyof { a: string } => "a"`,
	}, res.Lines())
	assert.Positive(t, res.Stats.JudgeQueries)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"bad declarations", "declarations: \"type = string\"\n", "declarations of bad"},
		{"unknown type in query", "queries:\n  - eval: Nope\n", "unknown type Nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			sc.Name = "bad"
			_, err = Run(sc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRunAppliesScenarioConfig(t *testing.T) {
	sc, err := Parse([]byte(`
config:
  fuel: 3
declarations: |
  type Deep<T> = { next: Deep<T[]> };
queries:
  - assignable: ["Deep<string>", "Deep<number>"]
`))
	require.NoError(t, err)
	sc.Name = "starved"
	res, err := Run(sc)
	require.NoError(t, err)
	require.Len(t, res.Answers, 1)
	assert.Equal(t, solver.RecursionLimitExceeded.String(), res.Answers[0].Value)
	assert.True(t, strings.HasPrefix(res.Lines()[0], "assignable Deep<string> -> Deep<number> => "))
}
