package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-travel-booking/internal/domain/trip"
	"github.com/sanosuguru/go-travel-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-travel-booking/internal/pkg/metrics"
)

// DepartureBackfiller は旧形式の出発日時を正規化して書き戻すワーカー
// 読み取り経路とは独立した明示的なパスとして定期実行される
// depart_at 未設定の行だけを対象にするため、何度実行しても結果は同じ
type DepartureBackfiller struct {
	tripRepo  trip.Repository
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewDepartureBackfiller は新しいバックフィルワーカーを作成する
func NewDepartureBackfiller(tr trip.Repository, interval time.Duration, batchSize int, m *metrics.Metrics) *DepartureBackfiller {
	return &DepartureBackfiller{
		tripRepo:  tr,
		interval:  interval,
		batchSize: batchSize,
		metrics:   m,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start はワーカーを開始する
func (w *DepartureBackfiller) Start(ctx context.Context) {
	logger.Info("出発日時バックフィルワーカー開始",
		zap.Duration("interval", w.interval),
		zap.Int("batch_size", w.batchSize),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("出発日時バックフィルワーカー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("出発日時バックフィルワーカー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Stop はワーカーを停止する
func (w *DepartureBackfiller) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// RunOnce はバックフィルを1パス実行し、正規化した件数を返す
func (w *DepartureBackfiller) RunOnce(ctx context.Context) int {
	log := logger.Get()
	log.Debug("出発日時バックフィル開始")

	legacies, err := w.tripRepo.ListLegacyDepartures(ctx, w.batchSize)
	if err != nil {
		log.Error("旧形式出発日時の取得に失敗", zap.Error(err))
		return 0
	}

	normalized := 0
	for _, ld := range legacies {
		departAt, err := trip.ParseDepartureTime(ld.Raw)
		if err != nil {
			// 解釈できない行は残して警告する（次パスで再挑戦しても無駄なため要手動対応）
			log.Warn("出発日時を解釈できません",
				zap.String("trip_id", ld.TripID),
				zap.String("raw", ld.Raw),
			)
			w.record("failed")
			continue
		}
		if err := w.tripRepo.SetDepartAt(ctx, ld.TripID, departAt); err != nil {
			log.Error("出発日時の書き戻しに失敗", zap.String("trip_id", ld.TripID), zap.Error(err))
			w.record("failed")
			continue
		}
		normalized++
		w.record("normalized")
	}

	if normalized > 0 {
		log.Info("出発日時を正規化", zap.Int("count", normalized))
	} else {
		log.Debug("正規化対象なし")
	}
	return normalized
}

func (w *DepartureBackfiller) record(status string) {
	if w.metrics == nil {
		return
	}
	w.metrics.DepartureBackfillTotal.WithLabelValues(status).Inc()
}
