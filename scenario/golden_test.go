package scenario

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// RunWithGolden runs sc and compares its rendered answers against the
// golden file fixtureDir/<sc.Name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./scenario -update
func RunWithGolden(t *testing.T, sc *Scenario, fixtureDir string) *Result {
	t.Helper()
	res, err := Run(sc)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir(fixtureDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, []byte(strings.Join(res.Lines(), "\n")+"\n"))
	return res
}
