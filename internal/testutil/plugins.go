package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/registry"
)

// RecorderModule is a test plugin registering one recording component
// per structural level. Each component appends the qualified name of
// every node it visits, giving tests the complete traversal order of a
// run. ImageBuilds counts BuildImage calls so tests can assert the
// plugin is loaded at most once.
type RecorderModule struct {
	mu          sync.Mutex
	visited     map[image.Kind][]string
	sequence    []string
	ImageBuilds int
}

// Name returns the plugin name.
func (m *RecorderModule) Name() string { return "recorder" }

// BuildImage synthesizes an identity-only image and counts the call.
func (m *RecorderModule) BuildImage() *image.Assembly {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ImageBuilds++
	return &image.Assembly{Name: "recorder", Version: "1.0"}
}

// componentNames maps each level to its recording component's name.
var componentNames = map[image.Kind]string{
	image.KindAssembly:  "RecordAssembly",
	image.KindModule:    "RecordModule",
	image.KindType:      "RecordType",
	image.KindMethod:    "RecordMethod",
	image.KindParameter: "RecordParameter",
}

// Register registers one recording component per level.
func (m *RecorderModule) Register(r *registry.Registry) {
	for _, level := range image.Kinds {
		level := level
		r.RegisterComponent(componentNames[level], &registry.RegisteredComponent{
			Level: level,
			New: func(spec registry.ComponentSpec) (registry.Processor, error) {
				return &recorder{module: m, level: level}, nil
			},
		})
	}
}

// Visited returns the nodes recorded at one level, in visit order.
func (m *RecorderModule) Visited(level image.Kind) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.visited[level]...)
}

// Sequence returns every visit across all levels in the order it
// happened, each entry prefixed with its level name.
func (m *RecorderModule) Sequence() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sequence...)
}

func (m *RecorderModule) record(level image.Kind, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.visited == nil {
		m.visited = make(map[image.Kind][]string)
	}
	m.visited[level] = append(m.visited[level], name)
	m.sequence = append(m.sequence, level.String()+" "+name)
}

type recorder struct {
	module *RecorderModule
	level  image.Kind
}

func (r *recorder) Process(ctx context.Context, node image.Node) error {
	r.module.record(r.level, node.QualifiedName())
	return nil
}

// ErrFail is the sentinel returned by the FailingModule's component.
var ErrFail = errors.New("component failed on purpose")

// FailingModule is a test plugin whose single method-level component
// fails on every node, for tests asserting that a processor failure
// aborts the run before any output is written.
type FailingModule struct{}

func (m *FailingModule) Name() string { return "failing" }

func (m *FailingModule) BuildImage() *image.Assembly {
	return &image.Assembly{Name: "failing", Version: "1.0"}
}

func (m *FailingModule) Register(r *registry.Registry) {
	r.RegisterComponent("AlwaysFail", &registry.RegisteredComponent{
		Level: image.KindMethod,
		New: func(spec registry.ComponentSpec) (registry.Processor, error) {
			return failing{}, nil
		},
	})
}

type failing struct{}

func (failing) Process(ctx context.Context, node image.Node) error {
	return ErrFail
}
