package gcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"google.golang.org/genai"
)

// SpeechSampleRate is the rate of the raw PCM returned by the TTS model.
const SpeechSampleRate = 24000

// Voice is a prebuilt TTS voice.
type Voice struct {
	Name  string
	Style string
	Male  bool
}

// Voices lists the prebuilt voices the TTS model accepts.
var Voices = []Voice{
	{"Zephyr", "bright", false},
	{"Puck", "upbeat", true},
	{"Charon", "informative", true},
	{"Kore", "firm", false},
	{"Fenrir", "excitable", true},
	{"Leda", "youthful", false},
	{"Orus", "firm", true},
	{"Aoede", "breezy", false},
	{"Callirrhoe", "easy-going", false},
	{"Autonoe", "bright", false},
	{"Enceladus", "breathy", true},
	{"Iapetus", "clear", true},
	{"Umbriel", "easy-going", true},
	{"Algieba", "smooth", true},
	{"Despina", "smooth", false},
	{"Erinome", "clear", false},
	{"Algenib", "gravelly", true},
	{"Rasalgethi", "informative", true},
	{"Laomedeia", "upbeat", false},
	{"Achernar", "soft", false},
	{"Alnilam", "firm", true},
	{"Schedar", "even", true},
	{"Gacrux", "mature", false},
	{"Pulcherrima", "forward", true},
	{"Achird", "friendly", true},
	{"Zubenelgenubi", "casual", true},
	{"Vindemiatrix", "gentle", false},
	{"Sadachbia", "lively", true},
	{"Sadaltager", "knowledgeable", true},
	{"Sulafat", "warm", false},
}

// LookupVoice finds a prebuilt voice by name, ignoring case.
func LookupVoice(name string) (Voice, error) {
	for _, v := range Voices {
		if strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return Voice{}, fmt.Errorf("unknown TTS voice %q: %w", name, pipeline.ErrConfiguration)
}

// SpeechConfig selects the TTS model and the voice of each speaker label
// used in scripts.
type SpeechConfig struct {
	APIKey string
	Model  string
	Voices map[string]string
}

// DefaultSpeechConfig returns the production TTS model and voices.
func DefaultSpeechConfig(apiKey string) SpeechConfig {
	return SpeechConfig{
		APIKey: apiKey,
		Model:  "gemini-2.5-flash-preview-tts",
		Voices: map[string]string{
			"Speaker1": "Alnilam",
			"Speaker2": "Autonoe",
		},
	}
}

// SpeechClient renders script chunks as two-speaker audio through the Gemini
// API.
type SpeechClient struct {
	client *genai.Client
	model  string
	speech *genai.SpeechConfig
}

func NewSpeechClient(ctx context.Context, cfg SpeechConfig) (*SpeechClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required: %w", pipeline.ErrConfiguration)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	speakers := make([]*genai.SpeakerVoiceConfig, 0, len(cfg.Voices))
	for _, label := range []string{"Speaker1", "Speaker2"} {
		voice, ok := cfg.Voices[label]
		if !ok {
			continue
		}
		speakers = append(speakers, &genai.SpeakerVoiceConfig{
			Speaker: label,
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		})
	}

	return &SpeechClient{
		client: client,
		model:  cfg.Model,
		speech: &genai.SpeechConfig{
			MultiSpeakerVoiceConfig: &genai.MultiSpeakerVoiceConfig{SpeakerVoiceConfigs: speakers},
		},
	}, nil
}

// Synthesize returns mono signed 16-bit PCM at SpeechSampleRate. A response
// without audio data is reported as pipeline.ErrMalformedResponse.
func (c *SpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig:       c.speech,
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(text), config)
	if err != nil {
		return nil, classify("failed to synthesize speech", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: tts returned no candidates", pipeline.ErrMalformedResponse)
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("%w: tts response carried no audio", pipeline.ErrMalformedResponse)
}
