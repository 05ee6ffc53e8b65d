package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// --- Extraction Model Prompts ---
const ExtractionSystemPrompt = "You are an OCR engine for scanned books. You return the readable body text of a single page and nothing else."
const ExtractionUserPrompt = `You will be provided with one page of a book as a PDF.

Extract:
- Body text.
- Chapter and section titles.

Do not extract footnotes, figures or text inside figures, captions, or page numbers.
Return only the extracted text.`

// --- Table of Contents Model Prompts ---
const TOCSystemPrompt = "You read tables of contents in scanned books. You must output valid JSON."
const TOCUserPrompt = `You will be provided with one page of a book as a PDF.

Only if the page contains a table of contents, read every chapter title and the page number it starts on.
Respond with {"isTableOfContentsPage": true, "chapterPages": [{"pageNumber": 1, "title": "..."}]}.
Otherwise respond with {"isTableOfContentsPage": false, "chapterPages": []}.`

// --- Topic Model Prompts ---
const TopicSystemPrompt = "You extract the topics a podcast episode should cover from a source text. You must output valid JSON."
const TopicUserPrompt = `Read the source text below and extract three to five topics for a podcast script.
Respond with {"topics": [{"title": "...", "description": "..."}]}.

Source text:
%s`

// --- Writer Model Prompts ---
const ScriptRules = `- Cover every topic supplied by the user.
- Length is not limited. Explain every topic in detail without skipping content.
- Output the body only. Opening and closing are handled separately.
- When feedback is supplied, address it.
- Write a dialogue between two people: a professor (Speaker1) and a student (Speaker2).
- The professor leads; the student asks sharp questions that dig deeper.
- Every line starts with the speaker label, for example "Speaker1: Hello."`

const WriterSystemPrompt = "You write podcast scripts for an expert audience. Keep the material difficult and dig into it through conversation.\nRules:\n" + ScriptRules

const WriterUserPrompt = `Topics:
%s
Source text:
%s`

// --- Evaluator Model Prompts ---
const EvaluatorSystemPrompt = "You review podcast scripts against a fixed set of rules. You must output valid JSON."
const EvaluatorUserPrompt = `Check whether the script follows these rules:
%s

Respond with {"isValid": true, "feedbackMessage": ""} when it does.
Otherwise set isValid to false and give concrete feedback with examples.

Topics:
%s
Script:
%s`

// VertexConfig names the models used for each task.
type VertexConfig struct {
	ExtractionModel string
	TOCModel        string
	TopicModel      string
	WriterModel     string
	EvaluatorModel  string
}

// DefaultVertexConfig returns the production model choices.
func DefaultVertexConfig() VertexConfig {
	return VertexConfig{
		ExtractionModel: "gemini-2.0-flash",
		TOCModel:        "gemini-2.5-flash",
		TopicModel:      "gemini-2.5-flash",
		WriterModel:     "gemini-2.5-pro",
		EvaluatorModel:  "gemini-2.5-flash",
	}
}

// VertexClient holds all pre-configured generative models for our app.
type VertexClient struct {
	ExtractionModel *genai.GenerativeModel
	TOCModel        *genai.GenerativeModel
	TopicModel      *genai.GenerativeModel
	WriterModel     *genai.GenerativeModel
	EvaluatorModel  *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string, cfg VertexConfig) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty: %w", pipeline.ErrConfiguration)
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	extractionModel := baseClient.GenerativeModel(cfg.ExtractionModel)
	extractionModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ExtractionSystemPrompt)},
	}
	extractionModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	tocModel := baseClient.GenerativeModel(cfg.TOCModel)
	tocModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TOCSystemPrompt)},
	}
	tocModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	topicModel := baseClient.GenerativeModel(cfg.TopicModel)
	topicModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TopicSystemPrompt)},
	}
	topicModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	}

	writerModel := baseClient.GenerativeModel(cfg.WriterModel)
	writerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(WriterSystemPrompt)},
	}
	writerModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}

	evaluatorModel := baseClient.GenerativeModel(cfg.EvaluatorModel)
	evaluatorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(EvaluatorSystemPrompt)},
	}
	evaluatorModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		ExtractionModel: extractionModel,
		TOCModel:        tocModel,
		TopicModel:      topicModel,
		WriterModel:     writerModel,
		EvaluatorModel:  evaluatorModel,
		baseClient:      baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// ExtractPageText reads the text of a single-page PDF.
func (c *VertexClient) ExtractPageText(ctx context.Context, page []byte) (string, error) {
	resp, err := c.ExtractionModel.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: page},
		genai.Text(ExtractionUserPrompt),
	)
	if err != nil {
		return "", classify("failed to generate content from gemini", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	if isRefusal(text) {
		return "", fmt.Errorf("%w: gemini response indicates refusal", pipeline.ErrMalformedResponse)
	}
	return text, nil
}

// FindChapterStarts reads the chapter starts off a single-page PDF. Pages
// that are not a table of contents report IsTableOfContentsPage false.
func (c *VertexClient) FindChapterStarts(ctx context.Context, page []byte) (models.TableOfContents, error) {
	resp, err := c.TOCModel.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: page},
		genai.Text(TOCUserPrompt),
	)
	if err != nil {
		return models.TableOfContents{}, classify("failed to read table of contents", err)
	}
	var toc models.TableOfContents
	if err := decodeJSON(resp, &toc); err != nil {
		return models.TableOfContents{}, err
	}
	return toc, nil
}

// SearchTopics asks for the topics a chapter's narration should cover.
func (c *VertexClient) SearchTopics(ctx context.Context, source string) ([]models.Topic, error) {
	resp, err := c.TopicModel.GenerateContent(ctx, genai.Text(fmt.Sprintf(TopicUserPrompt, source)))
	if err != nil {
		return nil, classify("failed to search topics", err)
	}
	var list models.TopicList
	if err := decodeJSON(resp, &list); err != nil {
		return nil, err
	}
	return list.Topics, nil
}

// DraftScript writes a two-speaker script. Feedback from earlier rounds is
// appended to the prompt.
func (c *VertexClient) DraftScript(ctx context.Context, source string, topics []models.Topic, feedback []string) (string, error) {
	prompt := fmt.Sprintf(WriterUserPrompt, models.FormatTopics(topics), source)
	if len(feedback) > 0 {
		prompt += "\nFeedback:\n- " + strings.Join(feedback, "\n- ")
	}
	resp, err := c.WriterModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classify("failed to draft script", err)
	}
	return responseText(resp)
}

// EvaluateScript checks a draft against the script rules.
func (c *VertexClient) EvaluateScript(ctx context.Context, script string, topics []models.Topic) (models.Evaluation, error) {
	prompt := fmt.Sprintf(EvaluatorUserPrompt, ScriptRules, models.FormatTopics(topics), script)
	resp, err := c.EvaluatorModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return models.Evaluation{}, classify("failed to evaluate script", err)
	}
	var eval models.Evaluation
	if err := decodeJSON(resp, &eval); err != nil {
		return models.Evaluation{}, err
	}
	return eval, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", pipeline.ErrMalformedResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}

	content := strings.TrimSpace(b.String())
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content), nil
}

func decodeJSON(resp *genai.GenerateContentResponse, v any) error {
	text, err := responseText(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("%w: failed to parse model JSON: %w", pipeline.ErrMalformedResponse, err)
	}
	return nil
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

func isRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
