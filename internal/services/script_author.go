package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// DefaultMaxDraftRounds bounds the draft and evaluate loop.
const DefaultMaxDraftRounds = 3

// ScriptModel is the generative backend of the Author.
type ScriptModel interface {
	SearchTopics(ctx context.Context, source string) ([]models.Topic, error)
	DraftScript(ctx context.Context, source string, topics []models.Topic, feedback []string) (string, error)
	EvaluateScript(ctx context.Context, script string, topics []models.Topic) (models.Evaluation, error)
}

// ScriptWriter turns chapter text into a narration script.
type ScriptWriter interface {
	WriteScript(ctx context.Context, source string) (string, error)
}

// Author writes a script in three steps: search topics once, then draft and
// evaluate for at most MaxRounds rounds, feeding every rejection back into
// the next draft. When no round is accepted the last draft is used.
type Author struct {
	Model     ScriptModel
	MaxRounds int
	Retry     pipeline.RetryPolicy
}

var _ ScriptWriter = (*Author)(nil)

func NewAuthor(model ScriptModel, retry pipeline.RetryPolicy) *Author {
	return &Author{Model: model, MaxRounds: DefaultMaxDraftRounds, Retry: retry}
}

func (a *Author) WriteScript(ctx context.Context, source string) (string, error) {
	topics, err := pipeline.Retry(ctx, a.Retry, "search topics", func(ctx context.Context) ([]models.Topic, error) {
		return a.Model.SearchTopics(ctx, source)
	})
	if err != nil {
		return "", err
	}

	rounds := a.MaxRounds
	if rounds < 1 {
		rounds = 1
	}
	var (
		draft    string
		feedback []string
	)
	for round := 1; round <= rounds; round++ {
		draft, err = pipeline.Retry(ctx, a.Retry, fmt.Sprintf("draft script (round %d)", round), func(ctx context.Context) (string, error) {
			return a.Model.DraftScript(ctx, source, topics, feedback)
		})
		if err != nil {
			return "", err
		}

		verdict, err := a.evaluate(ctx, draft, topics)
		if err != nil {
			return "", err
		}
		if verdict.IsValid {
			return draft, nil
		}
		slog.Debug("Draft rejected.", "round", round, "feedback", verdict.FeedbackMessage)
		feedback = append(feedback, verdict.FeedbackMessage)
	}
	return draft, nil
}

func (a *Author) evaluate(ctx context.Context, draft string, topics []models.Topic) (models.Evaluation, error) {
	if strings.TrimSpace(draft) == "" {
		return models.Evaluation{FeedbackMessage: "The script is empty. Write the script."}, nil
	}
	return pipeline.Retry(ctx, a.Retry, "evaluate script", func(ctx context.Context) (models.Evaluation, error) {
		return a.Model.EvaluateScript(ctx, draft, topics)
	})
}
