package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Lllllllleong/bookcastflow/internal/gcp"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"github.com/Lllllllleong/bookcastflow/internal/script"
)

// Concurrency is the per-stage ceiling on units calling out at once.
type Concurrency struct {
	Extraction int
	Scripting  int
	Synthesis  int
	Mastering  int
}

// DefaultConcurrency mirrors the upstream quotas the stages were tuned for.
func DefaultConcurrency() Concurrency {
	return Concurrency{Extraction: 10, Scripting: 10, Synthesis: 3, Mastering: 2}
}

// AssetConfig locates the shared audio assets inside the project bucket.
type AssetConfig struct {
	Prefix      string
	Jingle      string
	OpeningCall string
	BGM         string
}

func (a AssetConfig) path(name string) string {
	if a.Prefix == "" {
		return name
	}
	return a.Prefix + "/" + name
}

// WorkerConfig holds all configuration for the stage worker and intake.
type WorkerConfig struct {
	ProjectID         string
	VertexAIRegion    string
	Bucket            string
	ProjectCollection string
	ChapterCollection string
	WorkflowLocation  string
	WorkflowID        string
	GeminiAPIKey      string
	Vertex            gcp.VertexConfig
	TTSModel          string
	// TTSVoices maps the script speaker labels to prebuilt voice names.
	TTSVoices        map[string]string
	Assets           AssetConfig
	Concurrency      Concurrency
	MaxChunkSize     int
	SynthesisTimeout time.Duration
}

// LoadWorkerConfig loads and validates all necessary environment variables.
func LoadWorkerConfig() (*WorkerConfig, error) {
	return loadConfig(true)
}

// LoadLocalConfig is LoadWorkerConfig for runs that keep artifacts on the
// local disk, where PROJECT_BUCKET is optional.
func LoadLocalConfig() (*WorkerConfig, error) {
	return loadConfig(false)
}

func loadConfig(requireBucket bool) (*WorkerConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set: %w", pipeline.ErrConfiguration)
	}
	bucket := gcp.GetEnv("PROJECT_BUCKET", "")
	if bucket == "" && requireBucket {
		return nil, fmt.Errorf("PROJECT_BUCKET environment variable must be set: %w", pipeline.ErrConfiguration)
	}

	vertex := gcp.DefaultVertexConfig()
	vertex.ExtractionModel = gcp.GetEnv("EXTRACTION_MODEL", vertex.ExtractionModel)
	vertex.TOCModel = gcp.GetEnv("TOC_MODEL", vertex.TOCModel)
	vertex.TopicModel = gcp.GetEnv("TOPIC_MODEL", vertex.TopicModel)
	vertex.WriterModel = gcp.GetEnv("WRITER_MODEL", vertex.WriterModel)
	vertex.EvaluatorModel = gcp.GetEnv("EVALUATOR_MODEL", vertex.EvaluatorModel)

	defaults := DefaultConcurrency()
	cfg := &WorkerConfig{
		ProjectID:         projectID,
		VertexAIRegion:    gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		Bucket:            bucket,
		ProjectCollection: gcp.GetEnv("FIRESTORE_PROJECT_COLLECTION", "projects"),
		ChapterCollection: gcp.GetEnv("FIRESTORE_CHAPTER_COLLECTION", "chapters"),
		WorkflowLocation:  gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:        gcp.GetEnv("WORKFLOW_ID", "bookcast-stage-dispatcher"),
		GeminiAPIKey:      gcp.GetEnv("GEMINI_API_KEY", ""),
		Vertex:            vertex,
		TTSModel:          gcp.GetEnv("TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		Assets: AssetConfig{
			Prefix:      gcp.GetEnv("ASSET_PREFIX", "assets"),
			Jingle:      gcp.GetEnv("ASSET_JINGLE", "jingle.mp3"),
			OpeningCall: gcp.GetEnv("ASSET_OPENING_CALL", "opening_call.wav"),
			BGM:         gcp.GetEnv("ASSET_BGM", "bgm.mp3"),
		},
	}

	var err error
	if cfg.Concurrency.Extraction, err = envInt("EXTRACTION_CONCURRENCY", defaults.Extraction); err != nil {
		return nil, err
	}
	if cfg.Concurrency.Scripting, err = envInt("SCRIPTING_CONCURRENCY", defaults.Scripting); err != nil {
		return nil, err
	}
	if cfg.Concurrency.Synthesis, err = envInt("SYNTHESIS_CONCURRENCY", defaults.Synthesis); err != nil {
		return nil, err
	}
	if cfg.Concurrency.Mastering, err = envInt("MASTERING_CONCURRENCY", defaults.Mastering); err != nil {
		return nil, err
	}
	if cfg.MaxChunkSize, err = envInt("TTS_MAX_CHUNK_SIZE", script.DefaultMaxChunkSize); err != nil {
		return nil, err
	}
	cfg.TTSVoices = make(map[string]string, 2)
	for label, key := range map[string]string{"Speaker1": "TTS_VOICE_SPEAKER1", "Speaker2": "TTS_VOICE_SPEAKER2"} {
		voice, err := gcp.LookupVoice(gcp.GetEnv(key, defaultVoices[label]))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		cfg.TTSVoices[label] = voice.Name
	}
	timeout := gcp.GetEnv("SYNTHESIS_TIMEOUT", "1h")
	if cfg.SynthesisTimeout, err = time.ParseDuration(timeout); err != nil {
		return nil, fmt.Errorf("SYNTHESIS_TIMEOUT %q: %w", timeout, pipeline.ErrConfiguration)
	}
	return cfg, nil
}

var defaultVoices = gcp.DefaultSpeechConfig("").Voices

func envInt(key string, fallback int) (int, error) {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q: %w", key, raw, pipeline.ErrConfiguration)
	}
	return v, nil
}
