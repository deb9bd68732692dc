package service

import (
	"errors"

	"github.com/ralucacrepcea/scoreapp/internal/domain/checkpoint"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidEvent = errors.New("scan event is missing fields")
	ErrSignature    = errors.New("scan signature does not match")
	ErrExists       = errors.New("already exists")
	ErrInvalidName  = errors.New("invalid name")
	ErrNoActor      = errors.New("edits need an actor")

	// ErrCheckpointNotFound is returned when no active checkpoint matches.
	ErrCheckpointNotFound = checkpoint.ErrNotFound
)
