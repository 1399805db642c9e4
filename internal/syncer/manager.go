// Package syncer drains the offline check-in queue against the server when
// connectivity allows, and keeps the device replica fresh via bundle sync.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/attendance"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/infra/metrics"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/replica"
)

// Replayer is the slice of the server client the drain loop needs.
type Replayer interface {
	Replay(ctx context.Context, op replica.QueuedCheckIn) (attendance.Decision, error)
}

// BundleFetcher is the slice of the server client bundle sync needs.
type BundleFetcher interface {
	FetchBundle(ctx context.Context) (*attendance.Bundle, error)
}

type Manager struct {
	store   *replica.Store
	client  Replayer
	fetcher BundleFetcher
	elector *Elector
	log     *slog.Logger

	// Guards against a manual "sync now" racing the periodic tick: a drain
	// is never re-entered.
	draining atomic.Bool
}

func NewManager(store *replica.Store, client Replayer, fetcher BundleFetcher, elector *Elector, log *slog.Logger) *Manager {
	m := &Manager{store: store, client: client, fetcher: fetcher, elector: elector, log: log}
	if elector != nil {
		elector.SetBusyCheck(m.draining.Load)
		elector.ClaimLeadership()
	}
	return m
}

// Drain replays pending operations in creation order. It stops at the first
// connectivity-class failure (the link is assumed still down) and leaves the
// remainder pending. Followers and concurrent triggers return immediately.
func (m *Manager) Drain(ctx context.Context) error {
	if m.elector != nil && !m.elector.IsLeader() {
		return nil
	}
	if !m.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer m.draining.Store(false)

	ops, err := m.store.PendingOps()
	if err != nil {
		return err
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}

		claimed, err := m.store.MarkSyncing(op.OperationID)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}

		// Every path below must land the operation back in a defined
		// state; a stuck "syncing" row is a bug.
		dec, err := m.client.Replay(ctx, op)
		switch {
		case errors.Is(err, ErrUnreachable):
			if revertErr := m.store.RevertPending(op.OperationID, err.Error()); revertErr != nil {
				return revertErr
			}
			metrics.SyncOperations.WithLabelValues("deferred").Inc()
			m.log.Info("sync deferred, server unreachable", "operation_id", op.OperationID, "retries", op.Retries+1)
			m.updateQueueGauges()
			return nil
		case err != nil:
			if failErr := m.store.MarkFailed(op.OperationID, err.Error()); failErr != nil {
				return failErr
			}
			metrics.SyncOperations.WithLabelValues("failed").Inc()
			m.log.Error("sync rejected", "operation_id", op.OperationID, "err", err)
		case dec.Success:
			if err := m.store.MarkSynced(op.OperationID); err != nil {
				return err
			}
			metrics.SyncOperations.WithLabelValues("synced").Inc()
		default:
			// The server denied an entry the device had already admitted.
			// Terminal: an operator decides what to do with it.
			if err := m.store.MarkFailed(op.OperationID, string(dec.Reason)); err != nil {
				return err
			}
			metrics.SyncOperations.WithLabelValues("denied").Inc()
			m.log.Warn("offline admit denied on replay", "operation_id", op.OperationID, "reason", dec.Reason)
		}
	}

	m.updateQueueGauges()
	return nil
}

// BundleSync refreshes the replica from the server. Best effort: a fetch
// failure leaves the existing replica untouched and is only logged.
func (m *Manager) BundleSync(ctx context.Context) {
	b, err := m.fetcher.FetchBundle(ctx)
	if err != nil {
		m.log.Info("bundle sync skipped", "err", err)
		return
	}
	if err := m.store.ApplyBundle(b, time.Now()); err != nil {
		m.log.Error("bundle apply failed", "err", err)
		return
	}
	metrics.LastBundleSync.SetToCurrentTime()
	m.log.Info("bundle applied", "members", len(b.Members))
}

// Counts exposes queue depths for the sync-status indicator.
func (m *Manager) Counts() (replica.QueueCounts, error) {
	return m.store.Counts()
}

// RequeueFailed is the operator-initiated retry of terminal operations.
func (m *Manager) RequeueFailed() (int, error) {
	n, err := m.store.RequeueFailed()
	if err == nil {
		m.updateQueueGauges()
	}
	return n, err
}

func (m *Manager) updateQueueGauges() {
	c, err := m.store.Counts()
	if err != nil {
		return
	}
	metrics.QueueDepth.WithLabelValues("pending").Set(float64(c.Pending))
	metrics.QueueDepth.WithLabelValues("syncing").Set(float64(c.Syncing))
	metrics.QueueDepth.WithLabelValues("failed").Set(float64(c.Failed))
}
