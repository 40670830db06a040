package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}


func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := ParseWithEnv([]string{"-h"}, out, envOf(nil))
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_NothingToRun(t *testing.T) {
	t.Chdir(t.TempDir())
	out := &bytes.Buffer{}
	cfg, exit, err := ParseWithEnv(nil, out, envOf(nil))
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "GRAPH_PATH")
}

func TestParse_PositionalGraph(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, exit, err := ParseWithEnv([]string{"-log-format", "TEXT", "graph.hcl"}, &bytes.Buffer{}, envOf(nil))
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "graph.hcl", cfg.GraphPath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 1.0, cfg.Rate)
	assert.Equal(t, 2*time.Second, cfg.JoinTimeout)
}

func TestParse_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("NODEGRID_RATE=3\nNODEGRID_TICKS=7\nNODEGRID_MAX_TASKS=2\n"), 0o600))

	env := envOf(map[string]string{
		"NODEGRID_TICKS":     "9",
		"NODEGRID_MAX_TASKS": "4",
	})
	cfg, _, err := ParseWithEnv([]string{"-env-file", envFile, "-max-tasks", "6", "-g", "x.hcl"}, &bytes.Buffer{}, env)
	require.NoError(t, err)

	assert.Equal(t, 3.0, cfg.Rate, "file beats default")
	assert.Equal(t, 9, cfg.Ticks, "environment beats file")
	assert.Equal(t, int64(6), cfg.MaxTasks, "flag beats environment")
	assert.Equal(t, "x.hcl", cfg.GraphPath)
	assert.Equal(t, envFile, cfg.EnvFile)
}

func TestParse_HTTPOnly(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, exit, err := ParseWithEnv([]string{"-http-port", "8080"}, &bytes.Buffer{}, envOf(nil))
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"unknown flag", []string{"--this-is-not-a-valid-flag"}, nil, "flag provided but not defined"},
		{"bad log format", []string{"-log-format", "xml", "g.hcl"}, nil, "invalid log-format"},
		{"bad log level", []string{"-log-level", "loud", "g.hcl"}, nil, "invalid log-level"},
		{"negative ticks", []string{"-ticks", "-1", "g.hcl"}, nil, "invalid ticks"},
		{"postgres without url", []string{"-state-backend", "postgres", "g.hcl"}, nil, "invalid database-url"},
		{"bad env value", []string{"g.hcl"}, map[string]string{"NODEGRID_RATE": "fast"}, "invalid environment"},
		{"missing env file", []string{"-env-file", "/does/not/exist.env", "g.hcl"}, nil, "reading env file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			_, _, err := ParseWithEnv(tt.args, &bytes.Buffer{}, envOf(tt.env))
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tt.want)
		})
	}
}
