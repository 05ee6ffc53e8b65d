package gcp

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// classify wraps err with op and tags transient upstream failures with
// pipeline.ErrUpstreamUnavailable so the retry policy picks them up.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, pipeline.ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return transientHTTP(gerr.Code)
	}
	var aerr genai.APIError
	if errors.As(err, &aerr) {
		return transientHTTP(aerr.Code)
	}
	var aerrPtr *genai.APIError
	if errors.As(err, &aerrPtr) {
		return transientHTTP(aerrPtr.Code)
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
			return true
		}
	}
	return false
}

func transientHTTP(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func isNotFound(err error) bool {
	if status.Code(err) == codes.NotFound {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
