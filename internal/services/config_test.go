package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"github.com/Lllllllleong/bookcastflow/internal/services"
)

func TestLoadWorkerConfigDefaults(t *testing.T) {
	t.Setenv("PROJECT_ID", "demo")
	t.Setenv("PROJECT_BUCKET", "demo-bookcast")

	cfg, err := services.LoadWorkerConfig()
	if err != nil {
		t.Fatalf("LoadWorkerConfig: %v", err)
	}
	if cfg.Concurrency != services.DefaultConcurrency() {
		t.Fatalf("unexpected concurrency %+v", cfg.Concurrency)
	}
	if cfg.MaxChunkSize != 4000 || cfg.SynthesisTimeout != time.Hour {
		t.Fatalf("unexpected synthesis settings: chunk=%d timeout=%s", cfg.MaxChunkSize, cfg.SynthesisTimeout)
	}
	if cfg.Assets.Prefix != "assets" || cfg.Assets.BGM != "bgm.mp3" {
		t.Fatalf("unexpected assets %+v", cfg.Assets)
	}
}

func TestLoadWorkerConfigOverrides(t *testing.T) {
	t.Setenv("PROJECT_ID", "demo")
	t.Setenv("PROJECT_BUCKET", "demo-bookcast")
	t.Setenv("SYNTHESIS_CONCURRENCY", "5")
	t.Setenv("SYNTHESIS_TIMEOUT", "90m")

	cfg, err := services.LoadWorkerConfig()
	if err != nil {
		t.Fatalf("LoadWorkerConfig: %v", err)
	}
	if cfg.Concurrency.Synthesis != 5 || cfg.SynthesisTimeout != 90*time.Minute {
		t.Fatalf("overrides not applied: %+v %s", cfg.Concurrency, cfg.SynthesisTimeout)
	}
}

func TestLoadWorkerConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing project", env: map[string]string{"PROJECT_ID": "", "PROJECT_BUCKET": "b"}},
		{name: "missing bucket", env: map[string]string{"PROJECT_ID": "p", "PROJECT_BUCKET": ""}},
		{name: "bad concurrency", env: map[string]string{"PROJECT_ID": "p", "PROJECT_BUCKET": "b", "MASTERING_CONCURRENCY": "zero"}},
		{name: "bad timeout", env: map[string]string{"PROJECT_ID": "p", "PROJECT_BUCKET": "b", "SYNTHESIS_TIMEOUT": "soon"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := services.LoadWorkerConfig(); !errors.Is(err, pipeline.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestLoadLocalConfigWithoutBucket(t *testing.T) {
	t.Setenv("PROJECT_ID", "demo")
	t.Setenv("PROJECT_BUCKET", "")

	if _, err := services.LoadWorkerConfig(); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("LoadWorkerConfig error = %v, want ErrConfiguration", err)
	}
	cfg, err := services.LoadLocalConfig()
	if err != nil {
		t.Fatalf("LoadLocalConfig: %v", err)
	}
	if cfg.Bucket != "" || cfg.ProjectID != "demo" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadWorkerConfigVoices(t *testing.T) {
	t.Setenv("PROJECT_ID", "demo")
	t.Setenv("PROJECT_BUCKET", "demo-bookcast")

	cfg, err := services.LoadWorkerConfig()
	if err != nil {
		t.Fatalf("LoadWorkerConfig: %v", err)
	}
	if cfg.TTSVoices["Speaker1"] != "Alnilam" || cfg.TTSVoices["Speaker2"] != "Autonoe" {
		t.Fatalf("unexpected default voices %v", cfg.TTSVoices)
	}

	t.Setenv("TTS_VOICE_SPEAKER1", "puck")
	t.Setenv("TTS_VOICE_SPEAKER2", "Kore")
	cfg, err = services.LoadWorkerConfig()
	if err != nil {
		t.Fatalf("LoadWorkerConfig: %v", err)
	}
	if cfg.TTSVoices["Speaker1"] != "Puck" || cfg.TTSVoices["Speaker2"] != "Kore" {
		t.Fatalf("unexpected voices %v", cfg.TTSVoices)
	}

	t.Setenv("TTS_VOICE_SPEAKER2", "Nobody")
	if _, err := services.LoadWorkerConfig(); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for an unknown voice, got %v", err)
	}
}
