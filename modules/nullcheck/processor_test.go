package nullcheck_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/registry"
	"github.com/vk/weavergo/internal/testutil"
	"github.com/vk/weavergo/modules/nullcheck"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// resolver resolves the "guard" alias against the plugin's own image
// and registry, standing in for the full plugin loader.
type resolver struct {
	img *image.Assembly
	reg *registry.Registry
}

func (r *resolver) Resolve(alias string) (*image.TypeDef, error) {
	t, _ := r.img.Type("Guard")
	return t, nil
}

func (r *resolver) ResolveRuntime(alias string) (*registry.RuntimeType, error) {
	rt, _ := r.reg.Type("Guard")
	return rt, nil
}

// newProcessor builds a configured NullCheckInjector the way the
// plugin loader would.
func newProcessor(t *testing.T, props nullcheck.Config) (registry.Processor, error) {
	t.Helper()
	mod := &nullcheck.Module{}
	reg := registry.New()
	mod.Register(reg)
	img := mod.BuildImage()

	cfg := props
	if err := cfg.Finalize(&resolver{img: img, reg: reg}); err != nil {
		return nil, err
	}

	comp, ok := reg.Component("NullCheckInjector")
	require.True(t, ok)
	return comp.New(registry.ComponentSpec{
		Config: &cfg,
		Logger: testLogger(),
		Image:  img,
	})
}

func TestFinalizeModeServiceExclusivity(t *testing.T) {
	t.Run("static forbids a service", func(t *testing.T) {
		cfg := nullcheck.Config{Mode: "static", Handler: "Guard.RequireNotNull", Service: "guard"}
		err := cfg.Finalize(&resolver{})
		assert.ErrorContains(t, err, "must not configure a handling service")
	})

	t.Run("instance requires a service", func(t *testing.T) {
		cfg := nullcheck.Config{Mode: "instance", Handler: "Check"}
		err := cfg.Finalize(&resolver{})
		assert.ErrorContains(t, err, "requires a handling service")
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := nullcheck.Config{Mode: "hybrid", Handler: "x"}
		err := cfg.Finalize(&resolver{})
		assert.ErrorContains(t, err, "unknown handling mode")
	})
}

func TestStaticInjection(t *testing.T) {
	proc, err := newProcessor(t, nullcheck.Config{Mode: "static", Handler: "Guard.RequireNotNull"})
	require.NoError(t, err)
	assert.False(t, proc.(registry.Stateful).HasState())

	asm := testutil.ServiceAssembly(testutil.NotNull())
	m := testutil.FixtureMethod(asm)
	require.NoError(t, proc.Process(context.Background(), m))

	require.Len(t, m.Body.Instrs, 5)
	assert.Equal(t, image.OpCall, m.Body.Instrs[1].Op)
	assert.Equal(t, "validation::Guard.RequireNotNull", m.Body.Instrs[1].Method.Qualified())
	require.NoError(t, image.VerifyBody(m))
}

func TestInstanceInjection(t *testing.T) {
	proc, err := newProcessor(t, nullcheck.Config{Mode: "instance", Handler: "Check", Service: "guard"})
	require.NoError(t, err)
	assert.True(t, proc.(registry.Stateful).HasState())

	asm := testutil.ServiceAssembly(testutil.NotNull())
	m := testutil.FixtureMethod(asm)
	require.NoError(t, proc.Process(context.Background(), m))

	require.Len(t, m.Body.Instrs, 6)
	assert.Equal(t, image.OpLoadService, m.Body.Instrs[0].Op)
	assert.Equal(t, "validation::Guard", m.Body.Instrs[0].Type.Qualified())
	assert.Equal(t, image.OpCallVirt, m.Body.Instrs[2].Op)
	require.NoError(t, image.VerifyBody(m))
}

func TestUnmarkedParameterUntouched(t *testing.T) {
	proc, err := newProcessor(t, nullcheck.Config{Mode: "static", Handler: "Guard.RequireNotNull"})
	require.NoError(t, err)

	asm := testutil.ServiceAssembly()
	m := testutil.FixtureMethod(asm)
	require.NoError(t, proc.Process(context.Background(), m))
	assert.Len(t, m.Body.Instrs, 3)
}

func TestValueTypedParameterRecovered(t *testing.T) {
	proc, err := newProcessor(t, nullcheck.Config{Mode: "static", Handler: "Guard.RequireNotNull"})
	require.NoError(t, err)

	asm := testutil.ServiceAssembly(testutil.NotNull())
	m := testutil.FixtureMethod(asm)
	m.Params[0].ValueType = true

	// The violation is logged and recovered; the body stays unmodified
	// and the run continues.
	require.NoError(t, proc.Process(context.Background(), m))
	assert.Len(t, m.Body.Instrs, 3)
}

func TestBodilessMethodRecovered(t *testing.T) {
	proc, err := newProcessor(t, nullcheck.Config{Mode: "static", Handler: "Guard.RequireNotNull"})
	require.NoError(t, err)

	asm := testutil.ServiceAssembly(testutil.NotNull())
	m := testutil.FixtureMethod(asm)
	m.Body = nil

	require.NoError(t, proc.Process(context.Background(), m))
	assert.Nil(t, m.Body)
}

func TestMarkerOverride(t *testing.T) {
	proc, err := newProcessor(t, nullcheck.Config{Mode: "static", Handler: "Guard.RequireNotNull", Marker: "required"})
	require.NoError(t, err)

	asm := testutil.ServiceAssembly(testutil.NotNull())
	m := testutil.FixtureMethod(asm)
	require.NoError(t, proc.Process(context.Background(), m))
	assert.Len(t, m.Body.Instrs, 3, "the default marker must not trigger an overridden policy")

	m.Params[0].AddMarker(image.Marker{Name: "required"})
	require.NoError(t, proc.Process(context.Background(), m))
	assert.Len(t, m.Body.Instrs, 5)
}

func TestUnknownStaticHandler(t *testing.T) {
	_, err := newProcessor(t, nullcheck.Config{Mode: "static", Handler: "Guard.Missing"})
	assert.ErrorContains(t, err, `has no method "Missing"`)

	_, err = newProcessor(t, nullcheck.Config{Mode: "static", Handler: "NoDot"})
	assert.ErrorContains(t, err, `must be of the form "Type.Method"`)

	_, err = newProcessor(t, nullcheck.Config{Mode: "static", Handler: "Ghost.Method"})
	assert.ErrorContains(t, err, `has no type "Ghost"`)
}

func TestInstanceHandlerMustExistOnService(t *testing.T) {
	_, err := newProcessor(t, nullcheck.Config{Mode: "instance", Handler: "Vanish", Service: "guard"})
	assert.ErrorContains(t, err, `has no method "Vanish"`)
}

func TestBindingReuseAcrossMethods(t *testing.T) {
	proc, err := newProcessor(t, nullcheck.Config{Mode: "static", Handler: "Guard.RequireNotNull"})
	require.NoError(t, err)

	asm := testutil.ServiceAssembly(testutil.NotNull())
	svc, _ := asm.Type("Service")
	second := svc.AddMethod(&image.Method{Name: "HandleAgain"})
	p := second.AddParam(&image.Parameter{Name: "o", TypeName: "app::Order"})
	p.AddMarker(testutil.NotNull())
	second.Body = image.NewBody(image.LoadArg(0), image.Instr(image.OpPop), image.Instr(image.OpRet))

	first := testutil.FixtureMethod(asm)
	require.NoError(t, proc.Process(context.Background(), first))
	require.NoError(t, proc.Process(context.Background(), second))

	// Both methods got their guard; the callee reference in the target
	// assembly is shared, not duplicated.
	assert.Len(t, asm.MethodRefs, 1)
}

// TestInjectedGuardRuns executes the rewritten method and asserts the
// injected call observes the argument before the original body does.
func TestInjectedGuardRuns(t *testing.T) {
	proc, err := newProcessor(t, nullcheck.Config{Mode: "instance", Handler: "Check", Service: "guard"})
	require.NoError(t, err)

	asm := testutil.ServiceAssembly(testutil.NotNull())
	m := testutil.FixtureMethod(asm)
	require.NoError(t, proc.Process(context.Background(), m))

	services := testutil.ServicesOf(&nullcheck.Module{})
	guard := services["validation::Guard"].(*nullcheck.Guard)
	host := testutil.Host{
		Funcs: map[string]func(recv any, args []any) any{
			"validation::Guard.Check": func(recv any, args []any) any {
				recv.(*nullcheck.Guard).Check(args[0])
				return nil
			},
		},
		Services: services,
	}

	_, err = testutil.Exec(m, host, nil)
	require.NoError(t, err)
	_, err = testutil.Exec(m, host, "order-42")
	require.NoError(t, err)

	assert.Equal(t, 2, guard.Checked)
	assert.Equal(t, 1, guard.Nulls)
}
