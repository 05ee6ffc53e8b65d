package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/services"
)

var (
	workerInstance *services.StageWorker
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// One entry point per stage for the dispatcher workflow, plus a generic
	// one that reads the stage from the request body.
	functions.HTTP("HandleStage", withWorker(func(w *services.StageWorker) http.Handler { return w }))
	functions.HTTP("HandleExtraction", stageEntry(models.StageExtraction))
	functions.HTTP("HandleScripting", stageEntry(models.StageScripting))
	functions.HTTP("HandleSynthesis", stageEntry(models.StageSynthesis))
	functions.HTTP("HandleMastering", stageEntry(models.StageMastering))
}

// main is required by the Go Functions Framework.
func main() {}

func stageEntry(stage models.StageName) http.HandlerFunc {
	return withWorker(func(w *services.StageWorker) http.Handler { return w.StageHandler(stage) })
}

// withWorker initializes the shared worker on first use and delegates to the
// handler built from it.
func withWorker(build func(*services.StageWorker) http.Handler) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			workerInstance, initErr = services.NewWorkerFromEnv(context.Background())
		})
		if initErr != nil {
			slog.Error("Critical error during function initialization", "error", initErr)
			http.Error(rw, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
			return
		}
		build(workerInstance).ServeHTTP(rw, r)
	}
}
