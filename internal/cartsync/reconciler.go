package cartsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmarceau/storefront-backend/internal/cart"
	"github.com/dmarceau/storefront-backend/pkg/db/models"
	"github.com/dmarceau/storefront-backend/pkg/logger"
	"github.com/dmarceau/storefront-backend/pkg/metrics"
)

// Pass outcomes reported to metrics.
const (
	OutcomeNoop     = "noop"
	OutcomeUpload   = "upload"
	OutcomeDownload = "download"
	OutcomeMerge    = "merge"
	OutcomeError    = "error"
)

// ReconcilerParams configure a reconciler.
type ReconcilerParams struct {
	Cache     cart.Cache
	Repo      *cart.Repository
	Logger    *logger.Logger
	Metrics   *metrics.SyncMetrics
	Tolerance time.Duration
	Now       func() time.Time
}

// Reconciler runs one cart reconciliation pass between the local cache and
// the remote shadow.
type Reconciler struct {
	cache     cart.Cache
	repo      *cart.Repository
	logg      *logger.Logger
	metrics   *metrics.SyncMetrics
	tolerance time.Duration
	now       func() time.Time

	// passLocks serializes passes per user across every caller: the
	// scheduled loop and checkout's pre-commit pass share these locks.
	passLocks sync.Map
}

// NewReconciler builds a reconciler.
func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		cache:     params.Cache,
		repo:      params.Repo,
		logg:      params.Logger,
		metrics:   params.Metrics,
		tolerance: params.Tolerance,
		now:       now,
	}, nil
}

// SyncPass reconciles one user's cart. Timestamps within the tolerance
// window are treated as concurrent: identical content is a no-op, divergent
// content merges by union with the max quantity per line. Outside the window
// the newer side wins outright. Passes for one user never overlap; a second
// caller blocks until the in-flight pass finishes.
func (r *Reconciler) SyncPass(ctx context.Context, userID uuid.UUID, deviceID string) (string, error) {
	lock, _ := r.passLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	local, err := r.cache.Get(ctx, userID)
	if err != nil {
		return OutcomeError, fmt.Errorf("load local cart: %w", err)
	}

	remote, err := r.repo.GetRecord(ctx, userID)
	if err != nil && !cart.IsRecordNotFound(err) {
		return OutcomeError, fmt.Errorf("load remote cart: %w", err)
	}

	if remote == nil {
		if local.IsEmpty() {
			return OutcomeNoop, nil
		}
		if err := r.upload(ctx, local, nil, deviceID); err != nil {
			return OutcomeError, err
		}
		return OutcomeUpload, nil
	}

	remoteCart := recordToCart(remote)

	// A zero local timestamp means this device has never touched the cart.
	if local.UpdatedAt.IsZero() && local.IsEmpty() {
		if err := r.download(ctx, remoteCart); err != nil {
			return OutcomeError, err
		}
		return OutcomeDownload, nil
	}

	delta := local.UpdatedAt.Sub(remote.LastModified)
	if delta < 0 {
		delta = -delta
	}

	if delta <= r.tolerance {
		if cart.ContentEqual(local, remoteCart) {
			return OutcomeNoop, nil
		}
		if err := r.merge(ctx, local, remote, deviceID); err != nil {
			return OutcomeError, err
		}
		return OutcomeMerge, nil
	}

	if local.UpdatedAt.After(remote.LastModified) {
		if cart.ContentEqual(local, remoteCart) {
			return OutcomeNoop, nil
		}
		if err := r.upload(ctx, local, remote, deviceID); err != nil {
			return OutcomeError, err
		}
		return OutcomeUpload, nil
	}

	if cart.ContentEqual(local, remoteCart) {
		return OutcomeNoop, nil
	}
	if err := r.download(ctx, remoteCart); err != nil {
		return OutcomeError, err
	}
	return OutcomeDownload, nil
}

func (r *Reconciler) upload(ctx context.Context, local *cart.Cart, prev *models.CartSyncRecord, deviceID string) error {
	record := cartToRecord(local, prev, deviceID)
	record.LastModified = local.UpdatedAt
	if err := r.repo.SaveSnapshot(ctx, record); err != nil {
		return fmt.Errorf("upload cart: %w", err)
	}
	return nil
}

func (r *Reconciler) download(ctx context.Context, remote *cart.Cart) error {
	if err := r.cache.Put(ctx, remote); err != nil {
		return fmt.Errorf("download cart: %w", err)
	}
	return nil
}

// merge writes the union cart to both sides with a fresh timestamp so the
// next pass sees them converged.
func (r *Reconciler) merge(ctx context.Context, local *cart.Cart, remote *models.CartSyncRecord, deviceID string) error {
	merged := unionMax(local, recordToCart(remote))
	merged.UserID = local.UserID
	merged.Recompute()
	merged.UpdatedAt = r.now()

	record := cartToRecord(merged, remote, deviceID)
	record.LastModified = merged.UpdatedAt
	if err := r.repo.SaveSnapshot(ctx, record); err != nil {
		return fmt.Errorf("store merged cart: %w", err)
	}
	if err := r.cache.Put(ctx, merged); err != nil {
		return fmt.Errorf("cache merged cart: %w", err)
	}
	if r.metrics != nil {
		r.metrics.IncMerge()
	}
	return nil
}
