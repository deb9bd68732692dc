package api

import (
	"errors"
	"net/http"

	eventqueue "github.com/ralucacrepcea/scoreapp/internal/adapters/mq/queue"
	"github.com/ralucacrepcea/scoreapp/internal/adapters/repository"
	service "github.com/ralucacrepcea/scoreapp/internal/app"
	"github.com/ralucacrepcea/scoreapp/internal/domain/checkpoint"
	"github.com/ralucacrepcea/scoreapp/internal/domain/editbuf"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	"github.com/ralucacrepcea/scoreapp/internal/export"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoActor    = errors.New("missing " + actorHeader + " header")
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusOf maps a service error to an HTTP status and a stable code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, checkpoint.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrExists):
		return http.StatusConflict, "exists"
	case errors.Is(err, editbuf.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrSignature):
		return http.StatusUnauthorized, "bad_signature"
	case errors.Is(err, eventqueue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, eventqueue.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, repository.ErrPartialBatch):
		return http.StatusMultiStatus, "partial"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrNoActor),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidEvent),
		errors.Is(err, service.ErrNoActor),
		errors.Is(err, editbuf.ErrInvalidRef),
		errors.Is(err, rubric.ErrReservedTopic),
		errors.Is(err, rubric.ErrEmptyLabel),
		errors.Is(err, rubric.ErrEmptyKey),
		errors.Is(err, rubric.ErrEmptyTopicName),
		errors.Is(err, rubric.ErrInvalidTopicName),
		errors.Is(err, export.ErrUnknownKind):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal"
}
