package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/weavergo/internal/app"
	"github.com/vk/weavergo/internal/hcl"
	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/registry"
)

// RewriteResult holds the outcomes of one harness run.
type RewriteResult struct {
	// Output is the decoded rewritten image, or nil when the run failed.
	Output *image.Assembly
	// OutputPath is where the rewritten image was (or would have been)
	// written.
	OutputPath string
	LogOutput  string
	Err        error
}

// RunRewriteTest provides a standardized harness for end-to-end tests:
// it writes the input image and HCL configuration to a temporary
// directory, runs the full application against them, and decodes the
// rewritten image. Startup panics are recovered into the result's Err
// so configuration-error tests can assert on them.
func RunRewriteTest(t *testing.T, input *image.Assembly, configHCL string, plugins ...registry.Plugin) *RewriteResult {
	t.Helper()

	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, input.Name+image.FileExtension)
	configPath := filepath.Join(tmpDir, "weave.hcl")

	_, err := image.WriteFile(inputPath, input)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, []byte(configHCL), 0644))

	appCfg, err := app.NewConfig(app.Config{
		InputPath:  inputPath,
		ConfigPath: configPath,
		LogFormat:  "text",
		LogLevel:   "debug",
	})
	require.NoError(t, err)

	result := &RewriteResult{OutputPath: appCfg.OutputPath}

	var testApp *app.App
	var logBuffer *app.SafeBuffer
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		testApp, logBuffer = app.SetupAppTest(t, appCfg, hcl.NewLoader(), plugins...)
	}()
	if result.Err != nil {
		return result
	}

	result.Err = testApp.Run(context.Background())
	result.LogOutput = logBuffer.String()
	if result.Err != nil {
		return result
	}

	out, err := image.ReadFile(appCfg.OutputPath)
	require.NoError(t, err)
	result.Output = out
	return result
}
