package handler

import (
	"time"

	"github.com/bitfantasy/linelog/internal/model/entity"
	"github.com/bitfantasy/linelog/internal/service"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 分析处理器
type AnalyticsHandler struct {
	recordSvc    *service.RecordService
	dashboardSvc *service.DashboardService
}

// NewAnalyticsHandler 创建分析处理器
func NewAnalyticsHandler(recordSvc *service.RecordService, dashboardSvc *service.DashboardService) *AnalyticsHandler {
	return &AnalyticsHandler{recordSvc: recordSvc, dashboardSvc: dashboardSvc}
}

func parseWindowParam(c *gin.Context) (service.TimeWindow, bool) {
	window, ok := service.ParseTimeWindow(c.Query("window"))
	if !ok {
		BadRequest(c, "Invalid time window: "+c.Query("window"))
		return window, false
	}
	return window, true
}

// Summary 获取质量汇总快照（Redis缓存，含合格率/缺陷率/返工成功率）
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	window, ok := parseWindowParam(c)
	if !ok {
		return
	}

	snapshot, err := h.dashboardSvc.Snapshot(c.Request.Context(), window)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, snapshot)
}

// Distributions 获取结果/失败原因/受影响输出的分布
func (h *AnalyticsHandler) Distributions(c *gin.Context) {
	window, ok := parseWindowParam(c)
	if !ok {
		return
	}

	records, err := h.recordSvc.List(c.Request.Context(), nil, false)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	filtered := service.FilterByTimeWindow(records, window, time.Now())
	Success(c, gin.H{
		"window":   window,
		"outcomes": service.OutcomeDistribution(filtered),
		"causes":   service.CauseDistribution(filtered),
		"outputs":  service.OutputDistribution(filtered),
	})
}

// Bins 获取指定测量字段的分箱缺陷率
func (h *AnalyticsHandler) Bins(c *gin.Context) {
	window, ok := parseWindowParam(c)
	if !ok {
		return
	}

	field := c.Query("field")
	width, known := service.BinWidths[field]
	if !known {
		BadRequest(c, "Unknown measurement field: "+field)
		return
	}

	records, err := h.recordSvc.List(c.Request.Context(), nil, false)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	filtered := service.FilterByTimeWindow(records, window, time.Now())
	Success(c, gin.H{
		"window": window,
		"field":  field,
		"bins":   service.BinnedDefectRates(filtered, field, width),
	})
}

// DecodeCode 解析4位分类编码
func (h *AnalyticsHandler) DecodeCode(c *gin.Context) {
	code := c.Param("code")

	info, err := entity.DecodeClassificationCode(code)
	if err != nil {
		BadRequest(c, "Invalid classification code: "+code)
		return
	}

	Success(c, info)
}
