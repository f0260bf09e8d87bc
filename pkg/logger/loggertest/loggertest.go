// Package loggertest builds loggers for tests.
package loggertest

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/core-coin/vault-indexer/pkg/logger"
)

// New returns a logger that writes through t.Log.
func New(t testing.TB) *logger.Logger {
	return &logger.Logger{SugaredLogger: zaptest.NewLogger(t).Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}
