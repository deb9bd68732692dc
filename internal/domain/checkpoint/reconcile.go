// Package checkpoint keeps the stored checkpoints of a round in line with
// its configured checkpoint count.
package checkpoint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
)

const (
	// DefaultMax is the largest checkpoint count a round may have.
	DefaultMax = 50

	secretBytes = 16
)

// Patch changes selected fields of a checkpoint.
type Patch struct {
	Active *bool
	Secret *string
}

// Store is the checkpoint persistence the reconciler needs.
type Store interface {
	Checkpoints(ctx context.Context, roundID string) ([]model.Checkpoint, error)
	AddCheckpoint(ctx context.Context, cp model.Checkpoint) error
	PatchCheckpoint(ctx context.Context, id string, p Patch) error
}

// Result counts the writes of one reconciliation.
type Result struct {
	RoundID     string `json:"roundId"`
	Target      int    `json:"target"`
	Created     int    `json:"created"`
	Activated   int    `json:"activated"`
	Secured     int    `json:"secured"`
	Deactivated int    `json:"deactivated"`
	Writes      int    `json:"writes"`
}

// Reconciler converges stored checkpoints onto a round's target count.
type Reconciler struct {
	store  Store
	max    int
	now    func() time.Time
	secret func() (string, error)
	newID  func() string
	log    logger.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithMax sets the largest allowed target.
func WithMax(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.max = n
		}
	}
}

// WithClock sets the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSecretSource replaces the random secret generator.
func WithSecretSource(fn func() (string, error)) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.secret = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// NewReconciler creates a Reconciler over store.
func NewReconciler(store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  store,
		max:    DefaultMax,
		now:    time.Now,
		secret: NewSecret,
		newID:  uuid.NewString,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clamp bounds a requested checkpoint count to [0, max].
func (r *Reconciler) Clamp(target int) int {
	if target < 0 {
		return 0
	}
	if target > r.max {
		return r.max
	}
	return target
}

// Reconcile makes orders 1..target exist, be active and carry a secret, and
// deactivates active checkpoints past target. Nothing is ever deleted, so
// scans recorded against a deactivated checkpoint keep resolving.
// Orders are processed one at a time; the first store error aborts the run
// and is returned together with the writes done so far. Running it again
// with the same target performs no writes.
func (r *Reconciler) Reconcile(ctx context.Context, roundID string, target int) (Result, error) {
	res := Result{RoundID: roundID, Target: r.Clamp(target)}

	existing, err := r.store.Checkpoints(ctx, roundID)
	if err != nil {
		return res, fmt.Errorf("list checkpoints of %s: %w", roundID, err)
	}
	byOrder := canonicalByOrder(existing)

	for order := 1; order <= res.Target; order++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		cp, ok := byOrder[order]
		if !ok {
			if err := r.create(ctx, roundID, order); err != nil {
				return res, err
			}
			res.Created++
			res.Writes++
			continue
		}

		var p Patch
		if !cp.Active {
			active := true
			p.Active = &active
			res.Activated++
		}
		if cp.Secret == "" {
			secret, err := r.secret()
			if err != nil {
				return res, fmt.Errorf("%w: %w", ErrSecret, err)
			}
			p.Secret = &secret
			res.Secured++
		}
		if p.Active == nil && p.Secret == nil {
			continue
		}
		if err := r.store.PatchCheckpoint(ctx, cp.ID, p); err != nil {
			return res, fmt.Errorf("update checkpoint %s: %w", cp.ID, err)
		}
		res.Writes++
	}

	// Sorted so a failure leaves a predictable prefix deactivated.
	sort.Slice(existing, func(i, j int) bool { return existing[i].Order < existing[j].Order })
	for _, cp := range existing {
		if cp.Order <= res.Target || !cp.Active {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		inactive := false
		if err := r.store.PatchCheckpoint(ctx, cp.ID, Patch{Active: &inactive}); err != nil {
			return res, fmt.Errorf("deactivate checkpoint %s: %w", cp.ID, err)
		}
		res.Deactivated++
		res.Writes++
	}

	if res.Writes > 0 {
		r.log.Info(ctx, "checkpoints reconciled",
			logger.String("round", roundID),
			logger.Int("target", res.Target),
			logger.Int("created", res.Created),
			logger.Int("activated", res.Activated),
			logger.Int("secured", res.Secured),
			logger.Int("deactivated", res.Deactivated))
	}
	return res, nil
}

// DeactivateAll deactivates every active checkpoint of a round.
func (r *Reconciler) DeactivateAll(ctx context.Context, roundID string) (Result, error) {
	return r.Reconcile(ctx, roundID, 0)
}

func (r *Reconciler) create(ctx context.Context, roundID string, order int) error {
	secret, err := r.secret()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecret, err)
	}
	cp := model.Checkpoint{
		ID:        r.newID(),
		RoundID:   roundID,
		Order:     order,
		Active:    true,
		Secret:    secret,
		CreatedAt: r.now().UnixMilli(),
	}
	if err := r.store.AddCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("create checkpoint %s#%d: %w", roundID, order, err)
	}
	return nil
}

// canonicalByOrder picks one checkpoint per order: an active one if any,
// otherwise the earliest created.
func canonicalByOrder(cps []model.Checkpoint) map[int]model.Checkpoint {
	out := make(map[int]model.Checkpoint, len(cps))
	for _, cp := range cps {
		cur, ok := out[cp.Order]
		switch {
		case !ok:
			out[cp.Order] = cp
		case cp.Active && !cur.Active:
			out[cp.Order] = cp
		case cp.Active == cur.Active && cp.CreatedAt < cur.CreatedAt:
			out[cp.Order] = cp
		}
	}
	return out
}

// NewSecret returns 128 random bits as lowercase hex.
func NewSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
