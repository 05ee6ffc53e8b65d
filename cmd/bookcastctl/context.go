package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lllllllleong/bookcastflow/internal/gcp"
	"github.com/Lllllllleong/bookcastflow/internal/handoff"
	"github.com/Lllllllleong/bookcastflow/internal/services"
)

type globalOptions struct {
	envFile string
	dbPath  string
	dataDir string
	verbose bool
}

// commandContext opens backends lazily so commands that only read state do
// not need model credentials.
type commandContext struct {
	opts  *globalOptions
	queue *handoff.Queue

	backendsOnce sync.Once
	backends     *services.Backends
	backendsErr  error
}

func newCommandContext(opts *globalOptions) *commandContext {
	return &commandContext{opts: opts, queue: handoff.NewQueue()}
}

// storageConfig is the part of the worker configuration that storage needs.
func storageConfig() *services.WorkerConfig {
	return &services.WorkerConfig{Bucket: gcp.GetEnv("PROJECT_BUCKET", "")}
}

func (c *commandContext) ensureBackends(ctx context.Context) (*services.Backends, error) {
	c.backendsOnce.Do(func() {
		c.backends, c.backendsErr = services.NewLocalBackends(ctx, storageConfig(), services.LocalOptions{
			DBPath:  c.opts.dbPath,
			DataDir: c.opts.dataDir,
		}, c.queue)
	})
	return c.backends, c.backendsErr
}

// newWorker builds a stage worker over the local backends. It needs the full
// model configuration.
func (c *commandContext) newWorker(ctx context.Context) (*services.StageWorker, error) {
	cfg, err := services.LoadLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	b, err := c.ensureBackends(ctx)
	if err != nil {
		return nil, err
	}
	stages, err := services.NewStages(ctx, cfg, b)
	if err != nil {
		return nil, err
	}
	return services.NewStageWorker(b.Repo, services.NewController(cfg, b), stages...), nil
}

func (c *commandContext) close() error {
	if c.backends == nil {
		return nil
	}
	return c.backends.Close()
}
