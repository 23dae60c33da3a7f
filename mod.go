// Package ballot defines the global logger and the Prometheus collectors of
// the election ledger.
//
// The log level is read from the LLVL environment variable. Accepted values
// are trace, debug, info, warn, error, fatal and none. The default is info.
package ballot

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "LLVL"

const defaultLevel = zerolog.InfoLevel

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).Level(levelFromEnv(os.Getenv(EnvLogLevel))).
	With().Timestamp().Logger().
	With().Caller().Logger()

// PromCollectors exposes the Prometheus collectors of the components. A
// component appends its collectors when its package is initialized so that
// the proxy can register all of them at once.
var PromCollectors []prometheus.Collector

func levelFromEnv(lvl string) zerolog.Level {
	switch lvl {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "none":
		return zerolog.Disabled
	default:
		return defaultLevel
	}
}

// ContractArg is the argument key in the transaction to look up a contract.
const ContractArg = "go.dedis.ch/ballot.ContractArg"
