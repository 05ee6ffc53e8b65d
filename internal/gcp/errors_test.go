package gcp

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "googleapi 503", err: &googleapi.Error{Code: 503}, transient: true},
		{name: "googleapi 429", err: &googleapi.Error{Code: 429}, transient: true},
		{name: "googleapi 403", err: &googleapi.Error{Code: 403}, transient: false},
		{name: "grpc unavailable", err: status.Error(codes.Unavailable, "down"), transient: true},
		{name: "grpc resource exhausted", err: status.Error(codes.ResourceExhausted, "quota"), transient: true},
		{name: "grpc invalid argument", err: status.Error(codes.InvalidArgument, "bad"), transient: false},
		{name: "genai 500", err: genai.APIError{Code: 500, Message: "internal"}, transient: true},
		{name: "genai 400", err: genai.APIError{Code: 400, Message: "bad request"}, transient: false},
		{name: "wrapped grpc", err: fmt.Errorf("call: %w", status.Error(codes.Internal, "boom")), transient: true},
		{name: "plain", err: errors.New("boom"), transient: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := classify("op", tc.err)
			if got := errors.Is(err, pipeline.ErrUpstreamUnavailable); got != tc.transient {
				t.Fatalf("expected transient=%v, got %v (%v)", tc.transient, got, err)
			}
			if !strings.Contains(err.Error(), tc.err.Error()) {
				t.Fatalf("expected original message in %q", err)
			}
		})
	}
	if classify("op", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(status.Error(codes.NotFound, "missing")) {
		t.Fatalf("expected grpc NotFound to be detected")
	}
	if !isNotFound(&googleapi.Error{Code: 404}) {
		t.Fatalf("expected googleapi 404 to be detected")
	}
	if isNotFound(errors.New("other")) {
		t.Fatalf("expected plain error not to be NotFound")
	}
}

func TestPreconditionFailed(t *testing.T) {
	if !preconditionFailed(fmt.Errorf("close: %w", &googleapi.Error{Code: 412})) {
		t.Fatalf("expected 412 to be detected")
	}
	if preconditionFailed(&googleapi.Error{Code: 409}) {
		t.Fatalf("expected 409 not to count as precondition failure")
	}
}
