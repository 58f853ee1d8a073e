package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/linelog/internal/model/entity"
	"github.com/bitfantasy/linelog/internal/repository"
	"github.com/bitfantasy/linelog/internal/sse"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DashboardSnapshot 看板快照：一个时间窗口内的汇总、分布和分箱缺陷率
type DashboardSnapshot struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Window      TimeWindow           `json:"window"`
	Summary     QualitySummary       `json:"summary"`
	Outcomes    []DistributionEntry  `json:"outcomes"`
	Causes      []DistributionEntry  `json:"causes"`
	Outputs     []DistributionEntry  `json:"outputs"`
	Bins        map[string][]RateBin `json:"bins"`
}

// DashboardService 看板服务：计算快照并用Redis做短TTL缓存
type DashboardService struct {
	recordRepo *repository.RecordRepository
	rdb        *redis.Client
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewDashboardService 创建看板服务。rdb为nil时不启用缓存。
func NewDashboardService(recordRepo *repository.RecordRepository, rdb *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		recordRepo: recordRepo,
		rdb:        rdb,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

func cacheKey(window TimeWindow) string {
	return "linelog:dashboard:" + string(window)
}

// Snapshot 获取看板快照，优先读缓存
func (s *DashboardService) Snapshot(ctx context.Context, window TimeWindow) (*DashboardSnapshot, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, cacheKey(window)).Bytes()
		if err == nil {
			var snapshot DashboardSnapshot
			if err := json.Unmarshal(raw, &snapshot); err == nil {
				return &snapshot, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("Dashboard cache read failed", zap.Error(err))
		}
	}
	return s.Refresh(ctx, window)
}

// Refresh 重新计算快照并写缓存
func (s *DashboardService) Refresh(ctx context.Context, window TimeWindow) (*DashboardSnapshot, error) {
	records, err := s.recordRepo.List(ctx, nil, false)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	snapshot := buildSnapshot(records, window, time.Now())

	if s.rdb != nil {
		raw, err := json.Marshal(snapshot)
		if err == nil {
			if err := s.rdb.Set(ctx, cacheKey(window), raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("Dashboard cache write failed", zap.Error(err))
			}
		}
	}

	return snapshot, nil
}

// buildSnapshot 在内存中的完整记录集上做窗口过滤和聚合
func buildSnapshot(records []entity.Record, window TimeWindow, now time.Time) *DashboardSnapshot {
	windowed := FilterByTimeWindow(records, window, now)

	bins := make(map[string][]RateBin)
	for field, width := range BinWidths {
		if fieldBins := BinnedDefectRates(windowed, field, width); len(fieldBins) > 0 {
			bins[field] = fieldBins
		}
	}

	return &DashboardSnapshot{
		GeneratedAt: now,
		Window:      window,
		Summary:     Summarize(windowed),
		Outcomes:    OutcomeDistribution(windowed),
		Causes:      CauseDistribution(windowed),
		Outputs:     OutputDistribution(windowed),
		Bins:        bins,
	}
}

// Refresher 定时刷新器：按固定间隔重算快照，context取消即停。
// 对应看板的固定5秒轮询节奏，测试可直接调用RefreshOnce驱动。
type Refresher struct {
	svc      *DashboardService
	interval time.Duration
	logger   *zap.Logger
}

// NewRefresher 创建定时刷新器
func NewRefresher(svc *DashboardService, interval time.Duration, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{svc: svc, interval: interval, logger: logger}
}

// Start 启动刷新循环（阻塞，通常放在goroutine里跑）
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Dashboard refresher stopped")
			return
		case <-ticker.C:
			r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce 刷新一轮全部时间窗口并广播刷新事件
func (r *Refresher) RefreshOnce(ctx context.Context) {
	for _, window := range []TimeWindow{WindowHour, WindowDay, WindowWeek, WindowMonth, WindowAll} {
		if _, err := r.svc.Refresh(ctx, window); err != nil {
			r.logger.Warn("Dashboard refresh failed",
				zap.String("window", string(window)),
				zap.Error(err),
			)
			return
		}
	}
	sse.PublishSnapshotRefresh(string(WindowAll))
}
