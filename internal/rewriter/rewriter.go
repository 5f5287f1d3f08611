package rewriter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/weavergo/internal/ctxlog"
	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/registry"
)

// Rewriter runs instantiated pipelines over one program image. It owns
// the root assembly node for the duration of one rewrite; processors
// receive references scoped to a single Process call.
type Rewriter struct {
	pipelines registry.Pipelines
	logger    *slog.Logger
}

// New creates a rewriter over the given pipelines.
func New(pipelines registry.Pipelines, logger *slog.Logger) *Rewriter {
	return &Rewriter{pipelines: pipelines, logger: logger}
}

// Rewrite loads the image at inputPath, runs every pipeline in level
// order (assembly, module, type, method, parameter; processors in
// configuration order, nodes in declaration order), and serializes the
// result to outputPath. On failure nothing is written.
func (r *Rewriter) Rewrite(ctx context.Context, inputPath, outputPath string) error {
	logger := ctxlog.FromContext(ctx)

	asm, err := image.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("loading input image: %w", err)
	}
	logger.Info("Input image loaded.", "assembly", asm.Name, "modules", len(asm.Modules))

	for _, level := range image.Kinds {
		instances := r.pipelines[level]
		if len(instances) == 0 {
			continue
		}
		logger.Debug("Running pipeline.", "level", level.String(), "processors", len(instances))
		for _, inst := range instances {
			if err := r.runProcessor(ctx, inst, level, asm); err != nil {
				return err
			}
		}
	}

	sum, err := image.WriteFile(outputPath, asm)
	if err != nil {
		return fmt.Errorf("writing output image: %w", err)
	}
	logger.Info("Image rewritten.", "output", outputPath, "checksum", fmt.Sprintf("%016x", sum))
	return nil
}

// runProcessor invokes one processor against every node at its level.
func (r *Rewriter) runProcessor(ctx context.Context, inst registry.Instance, level image.Kind, asm *image.Assembly) error {
	return forEachNode(asm, level, func(node image.Node) error {
		if err := inst.Processor.Process(ctx, node); err != nil {
			return fmt.Errorf("processor %q failed at %s: %w", inst.Component, node.QualifiedName(), err)
		}
		return nil
	})
}

// forEachNode visits every node of one structural level in declaration
// order under its declaring ancestors.
func forEachNode(a *image.Assembly, level image.Kind, fn func(image.Node) error) error {
	if level == image.KindAssembly {
		return fn(a)
	}
	for _, mod := range a.Modules {
		if level == image.KindModule {
			if err := fn(mod); err != nil {
				return err
			}
			continue
		}
		for _, t := range mod.Types {
			if level == image.KindType {
				if err := fn(t); err != nil {
					return err
				}
				continue
			}
			for _, m := range t.Methods {
				if level == image.KindMethod {
					if err := fn(m); err != nil {
						return err
					}
					continue
				}
				for _, p := range m.Params {
					if err := fn(p); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
