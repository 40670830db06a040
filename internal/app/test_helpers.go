package app

import (
	"context"
	"os"
	"testing"

	"github.com/specialistvlad/nodegrid/internal/config"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/specialistvlad/nodegrid/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. The log
// buffer captures everything at debug level.
func SetupAppTest(t *testing.T, cfg *config.Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp, err := NewApp(context.Background(), logBuffer, cfg, modules...)
	if err != nil {
		t.Fatalf("creating app: %v", err)
	}
	t.Cleanup(func() {
		if os.Getenv("NODEGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
		if err := testApp.Close(); err != nil {
			t.Errorf("closing app: %v", err)
		}
	})
	return testApp, logBuffer
}
