package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/vk/weavergo/internal/config"
	"github.com/vk/weavergo/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance for system testing.
func SetupAppTest(t *testing.T, appCfg *Config, cfgLoader config.Loader, plugins ...registry.Plugin) (*App, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	appCfg.LogLevel = "debug"
	testApp := NewApp(logBuffer, appCfg, cfgLoader, plugins...)

	t.Cleanup(func() {
		if os.Getenv("WEAVERGO_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
