package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/repository"
	"github.com/d60-Lab/roadmap-api/pkg/logger"
)

var errStreamClosed = errors.New("change stream closed")

const reconcileTimeout = 10 * time.Second

// Reconciler 监听路线图更新事件，根据子主题状态重算 Topic.Status
//
// Each event only carries the document key, so every pass re-reads the full
// roadmap and derives from current state. Writes happen only when a status
// actually differs, which keeps its own updates from looping forever.
type Reconciler struct {
	roadmaps repository.RoadmapRepository
	backoff  time.Duration

	processed  atomic.Int64
	corrected  atomic.Int64
	failures   atomic.Int64
	subscribes atomic.Int64
}

func NewReconciler(roadmaps repository.RoadmapRepository, backoff time.Duration) *Reconciler {
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	return &Reconciler{roadmaps: roadmaps, backoff: backoff}
}

// Start 在后台运行订阅循环；返回停止函数
func (r *Reconciler) Start() func(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()
	return func(stopCtx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-stopCtx.Done():
			return stopCtx.Err()
		}
	}
}

// Run subscribes, consumes until the stream ends, waits the fixed backoff and
// subscribes again. It returns only when ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		err := r.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("roadmap change stream ended, resubscribing",
			zap.Duration("backoff", r.backoff),
			zap.Error(err),
		)

		t := time.NewTimer(r.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (r *Reconciler) consume(ctx context.Context) error {
	stream, err := r.roadmaps.Watch(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = stream.Close(closeCtx)
	}()

	r.subscribes.Add(1)
	logger.Info("listening to roadmap changes")

	for stream.Next(ctx) {
		id := stream.DocumentID()
		docCtx, cancel := context.WithTimeout(ctx, reconcileTimeout)
		changed, err := r.ReconcileRoadmap(docCtx, id)
		cancel()

		r.processed.Add(1)
		if err != nil {
			r.failures.Add(1)
			logger.Error("reconcile roadmap failed", zap.String("roadmap", id.Hex()), zap.Error(err))
			continue
		}
		if changed {
			logger.Info("updated topic statuses in roadmap", zap.String("roadmap", id.Hex()))
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}
	return errStreamClosed
}

// ReconcileRoadmap recomputes every topic status of one roadmap and persists
// the corrections. It reports whether a write happened.
func (r *Reconciler) ReconcileRoadmap(ctx context.Context, id primitive.ObjectID) (bool, error) {
	rm, err := r.roadmaps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			logger.Warn("roadmap vanished before reconcile", zap.String("roadmap", id.Hex()))
			return false, nil
		}
		return false, err
	}

	changed := rm.ReconcileTopics()
	if len(changed) == 0 {
		return false, nil
	}
	if err := r.roadmaps.UpdateTopicStatuses(ctx, rm.ID, changed); err != nil {
		return false, err
	}
	r.corrected.Add(1)
	return true, nil
}

// ReconcilerStats 运行计数（采样值）
type ReconcilerStats struct {
	Processed  int64
	Corrected  int64
	Failures   int64
	Subscribes int64
}

func (r *Reconciler) Stats() ReconcilerStats {
	return ReconcilerStats{
		Processed:  r.processed.Load(),
		Corrected:  r.corrected.Load(),
		Failures:   r.failures.Load(),
		Subscribes: r.subscribes.Load(),
	}
}
