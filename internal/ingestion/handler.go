package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	httperr "github.com/codepulse-dev/codepulse/internal/core/errors"
	"github.com/codepulse-dev/codepulse/internal/core/storage"

	v1 "github.com/codepulse-dev/codepulse/internal/api/v1"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgReadBodyFailed     = "Failed to read request body"
	msgInvalidJSON        = "Invalid JSON body"
	msgPersistFailed      = "Failed to persist heartbeat"
	msgDuplicateHeartbeat = "Heartbeat already exists"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler handles HTTP POST requests for heartbeat ingestion.
func (s *Service) IngestHandler(c *gin.Context) {
	hb, payloadSize, err := s.parseHeartbeat(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := s.validateHeartbeat(hb); err != nil {
		writeError(c, err)
		return
	}

	slog.Info("Received Heartbeat",
		"heartbeat_id", hb.ID,
		"user_id", hb.UserID,
		"language", hb.Language,
		"payload_size", payloadSize)

	if err := s.persistHeartbeat(c.Request.Context(), hb); err != nil {
		writeError(c, err)
		return
	}

	// Heartbeat persisted to DB. The aggregation job will pick it up on next cycle.
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// parseHeartbeat reads the raw request body and binds it into a Heartbeat struct.
// Returns the parsed heartbeat and the raw payload size (used for structured logging upstream).
func (s *Service) parseHeartbeat(c *gin.Context) (*v1.Heartbeat, int, *ingestionError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	// Check if body exceeds maximum size
	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var hb v1.Heartbeat
	if err := c.ShouldBindJSON(&hb); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	// set IngestedAt to be the time we receive the request
	hb.IngestedAt = time.Now().UTC()
	if hb.ID == "" {
		hb.ID = uuid.NewString()
	}
	hb.Language = s.normalizer.Normalize(hb.Language)

	return &hb, len(bodyBytes), nil
}

// validateHeartbeat runs envelope validation. Returns nil on success.
func (s *Service) validateHeartbeat(hb *v1.Heartbeat) *ingestionError {
	if err := hb.Validate(); err != nil {
		slog.Warn("Heartbeat validation failed", "error", err, "heartbeat_id", hb.ID)
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		}
	}
	return nil
}

// persistHeartbeat saves the heartbeat to the backing store.
func (s *Service) persistHeartbeat(ctx context.Context, hb *v1.Heartbeat) *ingestionError {
	if err := s.store.SaveHeartbeat(ctx, hb); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			slog.Info("Duplicate heartbeat rejected", "heartbeat_id", hb.ID, "user_id", hb.UserID)
			return &ingestionError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateHeartbeatError,
				message:    msgDuplicateHeartbeat,
			}
		}

		slog.Error("Failed to persist heartbeat", "error", err, "heartbeat_id", hb.ID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	return nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
