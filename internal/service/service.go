package service

import (
	"github.com/bitfantasy/linelog/internal/config"
	"github.com/bitfantasy/linelog/internal/repository"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Record    *RecordService
	Dashboard *DashboardService
	Export    *ExportService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, minioClient *minio.Client, cfg *config.Config, logger *zap.Logger) *Services {
	return &Services{
		Record:    NewRecordService(repos.Record),
		Dashboard: NewDashboardService(repos.Record, rdb, cfg.Dashboard.CacheTTL, logger),
		Export:    NewExportService(repos.Record, minioClient, cfg.MinIO.Bucket),
	}
}
