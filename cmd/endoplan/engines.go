package main

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/infrastructure/solvers/enumerate"
	"github.com/vsinha/endoplan/pkg/mip"
)

type engineFactory func(logger *zap.Logger, maxNodes int64) mip.Engine

// engines lists the compiled-in MIP engines. Optional engines register
// themselves from files behind build tags.
var engines = map[string]engineFactory{
	"enumerate": func(logger *zap.Logger, maxNodes int64) mip.Engine {
		return enumerate.New(logger, maxNodes)
	},
}

func newEngine(name string, logger *zap.Logger, maxNodes int64) (mip.Engine, error) {
	factory, ok := engines[name]
	if !ok {
		available := make([]string, 0, len(engines))
		for n := range engines {
			available = append(available, n)
		}
		sort.Strings(available)
		return nil, fmt.Errorf("engine %q is not available in this build (have %s)", name, strings.Join(available, ", "))
	}
	return factory(logger, maxNodes), nil
}
