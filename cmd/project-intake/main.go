package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	intakeInstance *services.Intake
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Triggered by object-finalized events on the upload bucket.
	functions.CloudEvent("IntakeProject", intakeProject)
}

// main is required by the Go Functions Framework.
func main() {}

func intakeProject(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		intakeInstance, initErr = services.NewIntakeFromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	project, err := intakeInstance.Process(ctx, gcsEvent)
	if err != nil {
		// Process logs with project context; returning marks the invocation failed.
		return err
	}
	if project != nil {
		slog.Info("Project created from upload.", "projectId", project.ID, "eventId", e.ID(), "object", gcsEvent.Name)
	}
	return nil
}
