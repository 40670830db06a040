package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) Lookup {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Idle())
	assert.False(t, cfg.NeedsDatabase())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(mapLookup(map[string]string{
		"NODEGRID_GRAPH":        "graphs/demo.hcl",
		"NODEGRID_RATE":         "2.5",
		"NODEGRID_TICKS":        "10",
		"NODEGRID_DURATION":     "1m",
		"NODEGRID_HTTP_PORT":    "8080",
		"NODEGRID_JOIN_TIMEOUT": "500ms",
		"NODEGRID_MAX_TASKS":    "3",
		"DATABASE_URL":          "postgres://localhost/db",
		"OPENAI_API_KEY":        "sk-test",
	}))
	require.NoError(t, err)

	want := Default()
	want.GraphPath = "graphs/demo.hcl"
	want.Rate = 2.5
	want.Ticks = 10
	want.Duration = time.Minute
	want.HTTPPort = 8080
	want.JoinTimeout = 500 * time.Millisecond
	want.MaxTasks = 3
	want.DatabaseURL = "postgres://localhost/db"
	want.OpenAIKey = "sk-test"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEnv_PrefixedDatabaseURLWins(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(mapLookup(map[string]string{
		"NODEGRID_DATABASE_URL": "postgres://a",
		"DATABASE_URL":          "postgres://b",
	})))
	assert.Equal(t, "postgres://a", cfg.DatabaseURL)
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(mapLookup(map[string]string{
		"NODEGRID_RATE":     "fast",
		"NODEGRID_DURATION": "forever",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NODEGRID_RATE")
	assert.Contains(t, err.Error(), "NODEGRID_DURATION")
}

func TestLayered_FirstSourceWins(t *testing.T) {
	lookup := Layered(
		mapLookup(map[string]string{"A": "env"}),
		nil,
		mapLookup(map[string]string{"A": "file", "B": "file"}),
	)
	v, ok := lookup("A")
	assert.True(t, ok)
	assert.Equal(t, "env", v)
	v, ok = lookup("B")
	assert.True(t, ok)
	assert.Equal(t, "file", v)
	_, ok = lookup("C")
	assert.False(t, ok)
}

func TestReadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NODEGRID_RATE=4\nOPENAI_API_KEY=\"sk-file\"\n"), 0o600))

	lookup, err := ReadEnvFile(path, true)
	require.NoError(t, err)
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, 4.0, cfg.Rate)
	assert.Equal(t, "sk-file", cfg.OpenAIKey)

	t.Run("missing optional file", func(t *testing.T) {
		lookup, err := ReadEnvFile(filepath.Join(dir, "nope"), false)
		require.NoError(t, err)
		assert.Nil(t, lookup)
	})
	t.Run("missing required file", func(t *testing.T) {
		_, err := ReadEnvFile(filepath.Join(dir, "nope"), true)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, []string{"invalid log-format"}},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, []string{"invalid log-level"}},
		{"negative rate", func(c *Config) { c.Rate = -1 }, []string{"invalid rate"}},
		{"port out of range", func(c *Config) { c.HTTPPort = 70000 }, []string{"invalid http-port"}},
		{"zero join timeout", func(c *Config) { c.JoinTimeout = 0 }, []string{"invalid join-timeout"}},
		{"zero max tasks", func(c *Config) { c.MaxTasks = 0 }, []string{"invalid max-tasks"}},
		{"unknown backend", func(c *Config) { c.StateBackend = "s3" }, []string{"invalid state-backend"}},
		{"postgres without url", func(c *Config) { c.StateBackend = "postgres" }, []string{"invalid database-url"}},
		{"pgvector without url", func(c *Config) { c.VectorBackend = "pgvector" }, []string{"invalid database-url", "pgvector"}},
		{"two problems", func(c *Config) {
			c.LogFormat = "xml"
			c.Ticks = -1
		}, []string{"invalid log-format", "invalid ticks"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestValidate_PostgresWithURL(t *testing.T) {
	cfg := Default()
	cfg.StateBackend = "postgres"
	cfg.VectorBackend = "pgvector"
	cfg.DatabaseURL = "postgres://localhost/db"
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.NeedsDatabase())
}

func TestNormalize(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = " TEXT "
	cfg.LogLevel = "Debug"
	cfg.Normalize()
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}
