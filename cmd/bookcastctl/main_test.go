package main

import (
	"archive/zip"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Lllllllleong/bookcastflow/internal/localstore"
	"github.com/Lllllllleong/bookcastflow/internal/models"
)

type cliTestEnv struct {
	dbPath    string
	dataDir   string
	projectID string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("PROJECT_BUCKET", "")

	base := t.TempDir()
	env := &cliTestEnv{
		dbPath:  filepath.Join(base, "bookcast.db"),
		dataDir: filepath.Join(base, "data"),
	}

	ctx := context.Background()
	store, err := localstore.Open(ctx, env.dbPath)
	if err != nil {
		t.Fatalf("localstore.Open: %v", err)
	}
	defer store.Close()

	project := &models.Project{Filename: "handbook.pdf", PageCount: 30, Status: models.StatusMastering}
	if err := store.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	env.projectID = project.ID
	chapters := []*models.Chapter{
		{ProjectID: project.ID, ChapterNumber: 1, Title: "Basics", StartPage: 1, EndPage: 11, Status: models.StatusMastered, SegmentCount: 2},
		{ProjectID: project.ID, ChapterNumber: 2, Title: "Advanced", StartPage: 11, EndPage: 31, Status: models.StatusMastering, SegmentCount: 3},
	}
	if err := store.BulkCreateChapters(ctx, chapters); err != nil {
		t.Fatalf("BulkCreateChapters: %v", err)
	}

	files, err := localstore.NewFileStore(env.dataDir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := files.Write(ctx, models.ChapterAudioPath(project.ID, 1), []byte("RIFF-one")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return env
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env", "", "--db", e.dbPath, "--data-dir", e.dataDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusListsProjects(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, env.projectID) || !strings.Contains(out, "handbook.pdf") || !strings.Contains(out, "MASTERING") {
		t.Fatalf("unexpected status output:\n%s", out)
	}
}

func TestStatusShowsChapters(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "status", "--project", env.projectID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{"handbook.pdf", "1-10", "11-30", "MASTERED", "Advanced"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusUnknownProject(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "status", "--project", "missing"); err == nil {
		t.Fatal("expected error for unknown project")
	}
}

func TestArchiveWritesMasteredChapters(t *testing.T) {
	env := setupCLITestEnv(t)
	outPath := filepath.Join(t.TempDir(), "book.zip")

	out, err := env.run(t, "archive", "--project", env.projectID, "--out", outPath)
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if !strings.Contains(out, "Wrote 1 chapters") {
		t.Fatalf("unexpected archive output: %s", out)
	}

	zr, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 1 || zr.File[0].Name != "chapter_001.wav" {
		t.Fatalf("unexpected archive entries: %d", len(zr.File))
	}
}

func TestRunRequiresProject(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := env.run(t, "run", "--stage", "extraction")
	if err == nil || !strings.Contains(err.Error(), "--project") {
		t.Fatalf("expected --project error, got %v", err)
	}
}
