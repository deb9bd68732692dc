package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/repository"
	"github.com/ralucacrepcea/scoreapp/internal/domain/checkpoint"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/unlock"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// ScanRequest is a signed scan reported by a checkpoint device.
type ScanRequest struct {
	EventID      string   `json:"eventId"`
	TeamID       string   `json:"teamId" validate:"required"`
	RoundID      string   `json:"roundId" validate:"required"`
	CheckpointID string   `json:"checkpointId" validate:"required"`
	TS           int64    `json:"ts" validate:"required,gt=0"`
	Temp         *float64 `json:"temp"`
	Humidity     *float64 `json:"humidity"`
	Signature    string   `json:"signature" validate:"required,hexadecimal"`
}

// IngestStatus is the outcome of an accepted scan request.
type IngestStatus string

const (
	IngestQueued    IngestStatus = "queued"
	IngestDuplicate IngestStatus = "duplicate"
)

// ScanStatus is a scan with its derived unlock state.
type ScanStatus struct {
	Scan   model.Scan    `json:"scan"`
	Status unlock.Status `json:"status"`
}

// Sign returns the hex HMAC-SHA256 of team|round|checkpoint|ts keyed by the
// checkpoint secret.
func Sign(secret, teamID, roundID, checkpointID string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(teamID + "|" + roundID + "|" + checkpointID + "|" + strconv.FormatInt(ts, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret string, r ScanRequest) bool {
	want := Sign(secret, r.TeamID, r.RoundID, r.CheckpointID, r.TS)
	got, err := hex.DecodeString(r.Signature)
	if err != nil {
		return false
	}
	wantRaw, _ := hex.DecodeString(want)
	return hmac.Equal(got, wantRaw)
}

// IngestScan authenticates a scan against its checkpoint secret, drops
// duplicate event ids and queues the event for the workers.
func (s *Service) IngestScan(ctx context.Context, r ScanRequest) (IngestStatus, error) {
	s.mu.RLock()
	started, q := s.started, s.eventQueue
	s.mu.RUnlock()
	if !started {
		return "", ErrNotStarted
	}
	if r.TeamID == "" || r.RoundID == "" || r.CheckpointID == "" || r.TS <= 0 {
		metrics.RecordScanRejected("invalid")
		return "", ErrInvalidEvent
	}

	cp, err := s.repo.Checkpoint(ctx, r.CheckpointID)
	if err != nil {
		metrics.RecordScanRejected("checkpoint")
		return "", err
	}
	if !cp.Active || cp.RoundID != r.RoundID {
		metrics.RecordScanRejected("checkpoint")
		return "", fmt.Errorf("%w: %s is not active in round %s", ErrCheckpointNotFound, cp.ID, r.RoundID)
	}
	if cp.Secret == "" || !verify(cp.Secret, r) {
		metrics.RecordScanRejected("signature")
		return "", ErrSignature
	}
	if _, err := s.repo.Team(ctx, r.TeamID); err != nil {
		metrics.RecordScanRejected("team")
		return "", err
	}

	eventID := r.EventID
	if eventID == "" {
		eventID = model.ScanKey(r.TeamID, r.RoundID, r.CheckpointID) + "@" + strconv.FormatInt(r.TS, 10)
	}
	if s.deduper.SeenAndRecord(ctx, eventID) {
		metrics.RecordScanDuplicate()
		s.logger.Debug(ctx, "duplicate scan event", logger.String("eventID", eventID))
		return IngestDuplicate, nil
	}

	e := model.ScanEvent{
		EventID:      eventID,
		TeamID:       r.TeamID,
		RoundID:      r.RoundID,
		CheckpointID: r.CheckpointID,
		TS:           r.TS,
		Temp:         r.Temp,
		Humidity:     r.Humidity,
	}
	if err := q.Enqueue(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, eventID)
		return "", err
	}
	return IngestQueued, nil
}

// Apply upserts one scan event into the canonical scan record. Events for
// the same key are serialized and the latest timestamp wins; an older event
// only moves the first-reach time back. Readings are only taken while the scan is unlocked at the
// event time; a later touch of a locked scan still moves updatedAtMs.
func (s *Service) Apply(ctx context.Context, e model.ScanEvent) error {
	start := time.Now()
	key := model.ScanKey(e.TeamID, e.RoundID, e.CheckpointID)
	release := s.locks.lock(key)
	defer release()

	cur, err := s.repo.Scan(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		err = s.repo.UpsertScan(ctx, model.Scan{
			TeamID:       e.TeamID,
			RoundID:      e.RoundID,
			CheckpointID: e.CheckpointID,
			CreatedAtMs:  e.TS,
			UpdatedAtMs:  e.TS,
			Temp:         e.Temp,
			Humidity:     e.Humidity,
		})
	case err != nil:
		return err
	case e.TS <= cur.Touched():
		metrics.RecordScanStale()
		s.logger.Debug(ctx, "stale scan event dropped",
			logger.String("key", key), logger.Int64("ts", e.TS), logger.Int64("stored", cur.Touched()))
		if !cur.Backdates(e.TS) {
			return nil
		}
		// the readings stay with the newer event; only the reach time moves
		return s.repo.BackdateScan(ctx, key, e.TS)
	default:
		temp, hum := e.Temp, e.Humidity
		if !unlock.Of(cur, time.UnixMilli(e.TS), s.grace).Unlocked && (temp != nil || hum != nil) {
			metrics.RecordScanRejected("locked")
			temp, hum = nil, nil
		}
		err = s.repo.TouchScan(ctx, key, e.TS, temp, hum)
	}
	if err != nil {
		return err
	}

	metrics.RecordScanIngested()
	metrics.RecordScanLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

func (s *Service) activeCheckpoint(ctx context.Context, roundID string, order int) (model.Checkpoint, error) {
	return checkpoint.ActiveAt(ctx, s.repo, roundID, order)
}

// Reopen starts a fresh grace window on the scan of team at the active
// checkpoint of round at order, creating the scan if needed. Without an
// active checkpoint at order nothing is written.
func (s *Service) Reopen(ctx context.Context, teamID, roundID string, order int) (ScanStatus, error) {
	cp, err := s.activeCheckpoint(ctx, roundID, order)
	if err != nil {
		return ScanStatus{}, err
	}
	key := model.ScanKey(teamID, roundID, cp.ID)
	release := s.locks.lock(key)
	defer release()

	now := s.now()
	if err := s.repo.UpsertScan(ctx, unlock.Reopened(teamID, roundID, cp.ID, now)); err != nil {
		return ScanStatus{}, err
	}
	s.logger.Info(ctx, "scan reopened",
		logger.String("team", teamID), logger.String("round", roundID), logger.Int("order", order))
	return s.scanStatus(ctx, key, now)
}

// Lock explicitly locks the scan of team at the checkpoint of round at order.
func (s *Service) Lock(ctx context.Context, teamID, roundID string, order int) (ScanStatus, error) {
	cp, err := s.activeCheckpoint(ctx, roundID, order)
	if err != nil {
		return ScanStatus{}, err
	}
	key := model.ScanKey(teamID, roundID, cp.ID)
	release := s.locks.lock(key)
	defer release()

	now := s.now()
	if err := s.repo.LockScan(ctx, key, true, now.UnixMilli()); err != nil {
		return ScanStatus{}, err
	}
	return s.scanStatus(ctx, key, now)
}

// Status reports the unlock state of the scan of team at order in round.
func (s *Service) Status(ctx context.Context, teamID, roundID string, order int) (ScanStatus, error) {
	cp, err := s.activeCheckpoint(ctx, roundID, order)
	if err != nil {
		return ScanStatus{}, err
	}
	return s.scanStatus(ctx, model.ScanKey(teamID, roundID, cp.ID), s.now())
}

func (s *Service) scanStatus(ctx context.Context, key string, now time.Time) (ScanStatus, error) {
	scan, err := s.repo.Scan(ctx, key)
	if err != nil {
		return ScanStatus{}, err
	}
	return ScanStatus{Scan: scan, Status: unlock.Of(scan, now, s.grace)}, nil
}
