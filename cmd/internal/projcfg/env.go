package projcfg

import (
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Env holds settings read from the process environment.
type Env struct {
	ConfigPath   string        `env:"PROJECT_CONFIG"`
	LogLevel     zapcore.Level `env:"LOG_LEVEL" envDefault:"warn"`
	FrontendPort int           `env:"FRONTEND_PORT" envDefault:"3000"`
	OtelExporter string        `env:"OTEL_EXPORTER" envDefault:"none"`
}

func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, errors.Wrap(err, "parsing environment")
	}
	return e, nil
}
