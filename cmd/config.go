package cmd

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cottand/tsolve/solver"
)

// loadConfig reads a solver configuration file. Fields missing from the
// file keep their defaults; an empty path yields the defaults.
func loadConfig(path string) (solver.Config, error) {
	c := solver.DefaultConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "could not read solver config")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return c, errors.Wrapf(err, "could not decode solver config %s", path)
	}
	return c, nil
}
