package services_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"github.com/Lllllllleong/bookcastflow/internal/services"
	"github.com/Lllllllleong/bookcastflow/internal/testsupport"
)

func TestAuthorAcceptsSecondDraft(t *testing.T) {
	model := &scriptModel{verdicts: []bool{false, true}, drafts: []string{"first", "second", "third"}}
	author := services.NewAuthor(model, fastRetry(3))

	got, err := author.WriteScript(context.Background(), "source")
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if got != "second" {
		t.Fatalf("expected second draft, got %q", got)
	}
	if model.topicCalls != 1 {
		t.Fatalf("expected one topic search, got %d", model.topicCalls)
	}
	want := [][]string{{}, {"feedback 1"}}
	if len(model.feedbackLog) != 2 || len(model.feedbackLog[0]) != 0 || !reflect.DeepEqual(model.feedbackLog[1], want[1]) {
		t.Fatalf("unexpected feedback log %v", model.feedbackLog)
	}
}

func TestAuthorReturnsLastDraftAfterMaxRounds(t *testing.T) {
	model := &scriptModel{drafts: []string{"one", "two", "three", "four"}}
	author := services.NewAuthor(model, fastRetry(3))

	got, err := author.WriteScript(context.Background(), "source")
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if got != "three" {
		t.Fatalf("expected third draft, got %q", got)
	}
	if model.draftCalls != services.DefaultMaxDraftRounds || model.evalCalls != services.DefaultMaxDraftRounds {
		t.Fatalf("expected %d rounds, got drafts=%d evals=%d", services.DefaultMaxDraftRounds, model.draftCalls, model.evalCalls)
	}
	if !reflect.DeepEqual(model.feedbackLog[2], []string{"feedback 1", "feedback 2"}) {
		t.Fatalf("expected accumulated feedback, got %v", model.feedbackLog[2])
	}
}

func TestAuthorDoesNotEvaluateEmptyDraft(t *testing.T) {
	model := &scriptModel{verdicts: []bool{true}, drafts: []string{"  ", "real"}}
	author := services.NewAuthor(model, fastRetry(3))

	got, err := author.WriteScript(context.Background(), "source")
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if got != "real" {
		t.Fatalf("expected second draft, got %q", got)
	}
	if model.evalCalls != 1 {
		t.Fatalf("expected one evaluation call, got %d", model.evalCalls)
	}
}

func TestScriptingStoresScripts(t *testing.T) {
	ctx := context.Background()
	repo := testsupport.NewRepository()
	store := testsupport.NewObjectStore()
	handoff := &testsupport.Handoff{}
	project := &models.Project{Filename: "book.pdf", PageCount: 10, Status: models.StatusExtracted}
	repo.Seed(project,
		&models.Chapter{ChapterNumber: 1, StartPage: 1, EndPage: 6, Status: models.StatusExtracted, ExtractedText: "alpha"},
		&models.Chapter{ChapterNumber: 2, StartPage: 6, EndPage: 11, Status: models.StatusExtracted, ExtractedText: "beta"},
	)

	stage := services.NewScripting(repo, store, echoWriter{}, 10, fastRetry(3))
	out, err := pipeline.NewController(repo, handoff).AdvanceStage(ctx, project, models.StatusExtracted, stage)
	if err != nil {
		t.Fatalf("AdvanceStage: %v", err)
	}
	if out.NextTask == nil || out.NextTask.Stage != models.StageSynthesis {
		t.Fatalf("expected synthesis hand-off, got %+v", out.NextTask)
	}
	for _, ch := range repo.Chapters(project.ID) {
		data, err := store.Download(ctx, models.ScriptPath(project.ID, ch.ChapterNumber))
		if err != nil {
			t.Fatalf("chapter %d: %v", ch.ChapterNumber, err)
		}
		if string(data) != ch.Script || ch.Status != models.StatusScripted {
			t.Fatalf("chapter %d: stored %q, chapter %q (%s)", ch.ChapterNumber, data, ch.Script, ch.Status)
		}
	}
	if got := repo.Chapters(project.ID)[1].Script; got != "BETA" {
		t.Fatalf("expected BETA, got %q", got)
	}
}

func TestScriptingRetriesTransientStoreFailures(t *testing.T) {
	ctx := context.Background()
	repo := testsupport.NewRepository()
	store := testsupport.NewObjectStore()
	project := &models.Project{Filename: "book.pdf", PageCount: 10, Status: models.StatusExtracted}
	repo.Seed(project,
		&models.Chapter{ChapterNumber: 1, StartPage: 1, EndPage: 11, Status: models.StatusExtracted, ExtractedText: "alpha"},
	)

	stage := services.NewScripting(repo, newFlakyStore(store), echoWriter{}, 10, fastRetry(3))
	if _, err := pipeline.NewController(repo, &testsupport.Handoff{}).AdvanceStage(ctx, project, models.StatusExtracted, stage); err != nil {
		t.Fatalf("AdvanceStage: %v", err)
	}
	if got := repo.Chapters(project.ID)[0].Status; got != models.StatusScripted {
		t.Fatalf("expected SCRIPTED, got %s", got)
	}
	if store.WriteCount(models.ScriptPath(project.ID, 1)) != 1 {
		t.Fatalf("expected the script to be stored once")
	}
}
