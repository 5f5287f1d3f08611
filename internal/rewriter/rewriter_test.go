package rewriter_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/weavergo/internal/ctxlog"
	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/registry"
	"github.com/vk/weavergo/internal/rewriter"
	"github.com/vk/weavergo/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), testLogger())
}

// multiNodeAssembly builds an image with two modules, two types, two
// methods and parameters, to observe traversal order.
func multiNodeAssembly() *image.Assembly {
	asm := &image.Assembly{Name: "app", Version: "1.0"}

	m1 := asm.AddModule(&image.Module{Name: "core"})
	t1 := m1.AddType(&image.TypeDef{Name: "Order"})
	save := t1.AddMethod(&image.Method{Name: "Save"})
	save.AddParam(&image.Parameter{Name: "db", TypeName: "app::Db"})
	save.Body = image.NewBody(image.Instr(image.OpRet))

	m2 := asm.AddModule(&image.Module{Name: "web"})
	t2 := m2.AddType(&image.TypeDef{Name: "Handler"})
	serve := t2.AddMethod(&image.Method{Name: "Serve"})
	serve.AddParam(&image.Parameter{Name: "req", TypeName: "app::Request"})
	serve.Body = image.NewBody(image.Instr(image.OpRet))

	return asm
}

func instantiate(t *testing.T, plugin registry.Plugin, components ...string) registry.Pipelines {
	t.Helper()
	reg := registry.New()
	plugin.Register(reg)

	pipelines := make(registry.Pipelines)
	for _, name := range components {
		comp, ok := reg.Component(name)
		require.True(t, ok, "component %s not registered", name)
		proc, err := comp.New(registry.ComponentSpec{Logger: testLogger()})
		require.NoError(t, err)
		pipelines[comp.Level] = append(pipelines[comp.Level], registry.Instance{Component: name, Processor: proc})
	}
	return pipelines
}

func TestRewriteVisitsNodesInDeclarationOrder(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "app"+image.FileExtension)
	outputPath := filepath.Join(dir, "app.weaved"+image.FileExtension)
	_, err := image.WriteFile(inputPath, multiNodeAssembly())
	require.NoError(t, err)

	rec := &testutil.RecorderModule{}
	pipelines := instantiate(t, rec,
		"RecordAssembly", "RecordModule", "RecordType", "RecordMethod", "RecordParameter")

	r := rewriter.New(pipelines, testLogger())
	require.NoError(t, r.Rewrite(testContext(), inputPath, outputPath))

	assert.Equal(t, []string{"app"}, rec.Visited(image.KindAssembly))
	assert.Equal(t, []string{"app::core", "app::web"}, rec.Visited(image.KindModule))
	assert.Equal(t, []string{"app::Order", "app::Handler"}, rec.Visited(image.KindType))
	assert.Equal(t, []string{"app::Order.Save", "app::Handler.Serve"}, rec.Visited(image.KindMethod))
	assert.Equal(t, []string{"app::Order.Save#db", "app::Handler.Serve#req"}, rec.Visited(image.KindParameter))

	// The output decodes and matches the input structure.
	out, err := image.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "app", out.Name)
	assert.Len(t, out.Modules, 2)
}

func TestRewriteFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "app"+image.FileExtension)
	outputPath := filepath.Join(dir, "app.weaved"+image.FileExtension)
	_, err := image.WriteFile(inputPath, multiNodeAssembly())
	require.NoError(t, err)

	pipelines := instantiate(t, &testutil.FailingModule{}, "AlwaysFail")
	r := rewriter.New(pipelines, testLogger())

	err = r.Rewrite(testContext(), inputPath, outputPath)
	require.ErrorIs(t, err, testutil.ErrFail)
	assert.ErrorContains(t, err, `processor "AlwaysFail" failed at app::Order.Save`)

	_, statErr := os.Stat(outputPath)
	assert.True(t, os.IsNotExist(statErr), "failed run must not produce an output image")
}

func TestRewriteMissingInput(t *testing.T) {
	r := rewriter.New(make(registry.Pipelines), testLogger())
	err := r.Rewrite(testContext(), filepath.Join(t.TempDir(), "ghost.wvi"), filepath.Join(t.TempDir(), "out.wvi"))
	assert.ErrorContains(t, err, "loading input image")
}

func TestRewriteProcessorsRunInConfigurationOrder(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "app"+image.FileExtension)
	outputPath := filepath.Join(dir, "out"+image.FileExtension)
	_, err := image.WriteFile(inputPath, multiNodeAssembly())
	require.NoError(t, err)

	// Two method-level recorders: the first must see every method
	// before the second sees any.
	first := &testutil.RecorderModule{}
	second := &testutil.RecorderModule{}
	pipelines := make(registry.Pipelines)
	for _, rec := range []*testutil.RecorderModule{first, second} {
		p := instantiate(t, rec, "RecordMethod")
		pipelines[image.KindMethod] = append(pipelines[image.KindMethod], p[image.KindMethod]...)
	}

	r := rewriter.New(pipelines, testLogger())
	require.NoError(t, r.Rewrite(testContext(), inputPath, outputPath))

	assert.Equal(t, []string{"app::Order.Save", "app::Handler.Serve"}, first.Visited(image.KindMethod))
	assert.Equal(t, []string{"app::Order.Save", "app::Handler.Serve"}, second.Visited(image.KindMethod))
}
