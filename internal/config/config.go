package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when no env file is configured explicitly.
const DefaultEnvFile = ".env"

// Config is the merged runtime configuration.
type Config struct {
	GraphPath string `flag:"graph"`

	LogFormat string `flag:"log-format" validate:"oneof=text json"`
	LogLevel  string `flag:"log-level" validate:"oneof=debug info warn error"`

	Rate        float64       `flag:"rate" validate:"gte=0"`
	Ticks       int           `flag:"ticks" validate:"gte=0"`
	Duration    time.Duration `flag:"duration" validate:"gte=0"`
	HTTPPort    int           `flag:"http-port" validate:"gte=0,lte=65535"`
	JoinTimeout time.Duration `flag:"join-timeout" validate:"gt=0"`
	MaxTasks    int64         `flag:"max-tasks" validate:"gte=1"`

	StateIn      string `flag:"state-in"`
	StateOut     string `flag:"state-out"`
	StateBackend string `flag:"state-backend" validate:"oneof=file postgres"`
	DatabaseURL  string `flag:"database-url" validate:"required_if=StateBackend postgres"`

	VectorBackend string `flag:"vector-backend" validate:"oneof=memory pgvector"`

	OpenAIKey     string `flag:"openai-key"`
	OpenAIBaseURL string `flag:"openai-base-url"`

	EnvFile string `flag:"env-file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogFormat:     "json",
		LogLevel:      "info",
		Rate:          1,
		JoinTimeout:   2 * time.Second,
		MaxTasks:      8,
		StateBackend:  "file",
		VectorBackend: "memory",
	}
}

// Lookup resolves a single environment variable.
type Lookup func(key string) (string, bool)

// Layered returns a Lookup that consults each source in order and returns
// the first hit.
func Layered(sources ...Lookup) Lookup {
	return func(key string) (string, bool) {
		for _, src := range sources {
			if src == nil {
				continue
			}
			if v, ok := src(key); ok {
				return v, true
			}
		}
		return "", false
	}
}

// ReadEnvFile parses a .env file without touching the process environment.
// A missing file is not an error unless required is set.
func ReadEnvFile(path string, required bool) (Lookup, error) {
	if path == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}, nil
}

// ApplyEnv overlays the variables found through lookup onto c.
func (c *Config) ApplyEnv(lookup Lookup) error {
	if lookup == nil {
		return nil
	}
	var errs []error
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok {
				*dst = v
				return
			}
		}
	}
	parse := func(key string, fn func(string) error) {
		if v, ok := lookup(key); ok {
			if err := fn(strings.TrimSpace(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	str(&c.GraphPath, "NODEGRID_GRAPH")
	str(&c.LogFormat, "NODEGRID_LOG_FORMAT")
	str(&c.LogLevel, "NODEGRID_LOG_LEVEL")
	str(&c.StateIn, "NODEGRID_STATE_IN")
	str(&c.StateOut, "NODEGRID_STATE_OUT")
	str(&c.StateBackend, "NODEGRID_STATE_BACKEND")
	str(&c.DatabaseURL, "NODEGRID_DATABASE_URL", "DATABASE_URL")
	str(&c.VectorBackend, "NODEGRID_VECTOR_BACKEND")
	str(&c.OpenAIKey, "OPENAI_API_KEY")
	str(&c.OpenAIBaseURL, "OPENAI_BASE_URL")

	parse("NODEGRID_RATE", func(s string) (err error) {
		c.Rate, err = strconv.ParseFloat(s, 64)
		return err
	})
	parse("NODEGRID_TICKS", func(s string) (err error) {
		c.Ticks, err = strconv.Atoi(s)
		return err
	})
	parse("NODEGRID_DURATION", func(s string) (err error) {
		c.Duration, err = time.ParseDuration(s)
		return err
	})
	parse("NODEGRID_HTTP_PORT", func(s string) (err error) {
		c.HTTPPort, err = strconv.Atoi(s)
		return err
	})
	parse("NODEGRID_JOIN_TIMEOUT", func(s string) (err error) {
		c.JoinTimeout, err = time.ParseDuration(s)
		return err
	})
	parse("NODEGRID_MAX_TASKS", func(s string) (err error) {
		c.MaxTasks, err = strconv.ParseInt(s, 10, 64)
		return err
	})

	return errors.Join(errs...)
}

// Normalize lower-cases the enumerated fields.
func (c *Config) Normalize() {
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.StateBackend = strings.ToLower(strings.TrimSpace(c.StateBackend))
	c.VectorBackend = strings.ToLower(strings.TrimSpace(c.VectorBackend))
}

// NeedsDatabase reports whether any configured backend talks to Postgres.
func (c *Config) NeedsDatabase() bool {
	return c.StateBackend == "postgres" || c.VectorBackend == "pgvector"
}

// Idle reports whether there is nothing to run: no graph, no state to
// restore and no API to serve.
func (c *Config) Idle() bool {
	return c.GraphPath == "" && c.StateIn == "" && c.HTTPPort == 0
}
