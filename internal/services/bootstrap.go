package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"github.com/Lllllllleong/bookcastflow/internal/audio"
	"github.com/Lllllllleong/bookcastflow/internal/gcp"
	"github.com/Lllllllleong/bookcastflow/internal/localstore"
	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// Backends is the set of infrastructure adapters a deployment runs on.
type Backends struct {
	Repo    pipeline.Repository
	Store   pipeline.ObjectStore
	Handoff pipeline.Handoff
	Uploads BucketOpener

	closers []func() error
}

// Close releases every client the backends opened.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// track registers the Close of a client that was just opened.
func (b *Backends) track(closer func() error) {
	b.closers = append(b.closers, closer)
}

// fail closes everything opened so far and returns err.
func (b *Backends) fail(err error) error {
	return errors.Join(err, b.Close())
}

// NewGCPBackends connects Firestore, Cloud Storage and Workflows.
func NewGCPBackends(ctx context.Context, cfg *WorkerConfig) (*Backends, error) {
	b := &Backends{}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	b.track(firestoreClient.Close)

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, b.fail(fmt.Errorf("failed to create Storage client: %w", err))
	}
	b.track(storageClient.Close)

	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, b.fail(fmt.Errorf("failed to create Workflows Executions client: %w", err))
	}
	b.track(executionsClient.Close)

	b.Repo = gcp.NewFirestoreRepository(firestoreClient, cfg.ProjectCollection, cfg.ChapterCollection)
	b.Store = gcp.NewObjectStore(storageClient, cfg.Bucket)
	b.Handoff = gcp.NewWorkflowHandoff(executionsClient, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
	b.Uploads = func(bucket string) pipeline.ObjectStore { return gcp.NewObjectStore(storageClient, bucket) }
	return b, nil
}

// LocalOptions selects where a local run keeps its state.
type LocalOptions struct {
	// DBPath is the SQLite database holding projects and chapters.
	DBPath string
	// DataDir holds artifacts when cfg.Bucket is empty.
	DataDir string
}

// NewLocalBackends keeps projects and chapters in SQLite and hands stages to
// handoff. Artifacts go to cfg.Bucket when set and to opts.DataDir otherwise.
// Upload buckets name local directories unless cfg.Bucket is set.
func NewLocalBackends(ctx context.Context, cfg *WorkerConfig, opts LocalOptions, handoff pipeline.Handoff) (*Backends, error) {
	db, err := localstore.Open(ctx, opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	b := &Backends{
		Repo:    db,
		Handoff: handoff,
		closers: []func() error{db.Close},
	}

	if cfg.Bucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			return nil, b.fail(fmt.Errorf("failed to create Storage client: %w", err))
		}
		b.track(storageClient.Close)
		b.Store = gcp.NewObjectStore(storageClient, cfg.Bucket)
		b.Uploads = func(bucket string) pipeline.ObjectStore { return gcp.NewObjectStore(storageClient, bucket) }
		return b, nil
	}

	files, err := localstore.NewFileStore(opts.DataDir)
	if err != nil {
		return nil, b.fail(err)
	}
	b.Store = files
	b.Uploads = func(dir string) pipeline.ObjectStore { return localstore.Dir(filepath.Clean(dir)) }
	return b, nil
}

// NewStages builds the four stage executors on top of b and the generative
// backends.
func NewStages(ctx context.Context, cfg *WorkerConfig, b *Backends) ([]pipeline.Stage, error) {
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.Vertex)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	b.track(vertexClient.Close)
	speechCfg := gcp.DefaultSpeechConfig(cfg.GeminiAPIKey)
	speechCfg.Model = cfg.TTSModel
	if len(cfg.TTSVoices) > 0 {
		speechCfg.Voices = cfg.TTSVoices
	}
	speechClient, err := gcp.NewSpeechClient(ctx, speechCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	retry := pipeline.DefaultRetryPolicy()
	mix := audio.DefaultMixConfig()
	mix.SampleRate = gcp.SpeechSampleRate
	return []pipeline.Stage{
		NewExtraction(b.Repo, b.Store, vertexClient, PDFCPU{}, cfg.Concurrency.Extraction, retry),
		NewScripting(b.Repo, b.Store, NewAuthor(vertexClient, retry), cfg.Concurrency.Scripting, retry),
		NewSynthesis(b.Repo, b.Store, speechClient, gcp.SpeechSampleRate, cfg.MaxChunkSize, cfg.Concurrency.Synthesis, retry),
		NewMastering(b.Repo, b.Store, cfg.Assets, mix, cfg.Concurrency.Mastering, retry),
	}, nil
}

// NewChapterFinder opens the model that reads tables of contents. b closes
// it.
func NewChapterFinder(ctx context.Context, cfg *WorkerConfig, b *Backends) (ChapterFinder, error) {
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.Vertex)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	b.track(vertexClient.Close)
	return vertexClient, nil
}

// NewController applies the configured stage limits.
func NewController(cfg *WorkerConfig, b *Backends) *pipeline.Controller {
	return pipeline.NewController(b.Repo, b.Handoff,
		pipeline.WithStageTimeout(models.StageSynthesis, cfg.SynthesisTimeout),
	)
}

// NewWorkerFromEnv wires a stage worker from the environment.
func NewWorkerFromEnv(ctx context.Context) (*StageWorker, error) {
	cfg, err := LoadWorkerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	b, err := NewGCPBackends(ctx, cfg)
	if err != nil {
		return nil, err
	}
	stages, err := NewStages(ctx, cfg, b)
	if err != nil {
		return nil, err
	}
	slog.Info("Stage worker initialized.", "workflowId", cfg.WorkflowID, "bucket", cfg.Bucket)
	return NewStageWorker(b.Repo, NewController(cfg, b), stages...), nil
}

// NewIntakeFromEnv wires project intake from the environment.
func NewIntakeFromEnv(ctx context.Context) (*Intake, error) {
	cfg, err := LoadWorkerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	b, err := NewGCPBackends(ctx, cfg)
	if err != nil {
		return nil, err
	}
	finder, err := NewChapterFinder(ctx, cfg, b)
	if err != nil {
		return nil, b.fail(err)
	}
	slog.Info("Project intake initialized.", "workflowId", cfg.WorkflowID, "bucket", cfg.Bucket)
	return NewIntake(b.Repo, b.Store, b.Uploads, b.Handoff, PDFCPU{}).
		WithChapterFinder(finder, pipeline.DefaultRetryPolicy()), nil
}
