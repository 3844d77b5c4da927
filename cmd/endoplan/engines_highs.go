//go:build highs

package main

import (
	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/infrastructure/solvers/highs"
	"github.com/vsinha/endoplan/pkg/mip"
)

func init() {
	engines["highs"] = func(logger *zap.Logger, _ int64) mip.Engine {
		return highs.New(logger)
	}
}
