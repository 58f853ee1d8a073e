package handler

import (
	"github.com/bitfantasy/linelog/internal/service"
	"github.com/gin-gonic/gin"
)

// RecordHandler 记录处理器
type RecordHandler struct {
	svc *service.RecordService
}

// NewRecordHandler 创建记录处理器
func NewRecordHandler(svc *service.RecordService) *RecordHandler {
	return &RecordHandler{svc: svc}
}

// Create 创建记录。质检提交命中已有业务ID时归并为更新，返回200而非201。
func (h *RecordHandler) Create(c *gin.Context) {
	var req service.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	record, amended, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		serviceError(c, err, "Record not found")
		return
	}

	if amended {
		Success(c, record)
		return
	}
	Created(c, record)
}

// List 获取记录列表，支持category/operator精确过滤和sort=newest排序
func (h *RecordHandler) List(c *gin.Context) {
	filters := map[string]interface{}{
		"category": c.Query("category"),
		"operator": c.Query("operator"),
	}
	sortNewest := c.Query("sort") == "newest"

	records, err := h.svc.List(c.Request.Context(), filters, sortNewest)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, records)
}

// Get 获取记录详情
func (h *RecordHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Record ID is required")
		return
	}

	record, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err, "Record not found")
		return
	}

	Success(c, record)
}

// Update 部分更新记录
func (h *RecordHandler) Update(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Record ID is required")
		return
	}

	var req service.UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	record, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		serviceError(c, err, "Record not found")
		return
	}

	Success(c, record)
}

// Delete 删除记录（幂等：不存在的ID同样返回成功）
func (h *RecordHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Record ID is required")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, gin.H{"message": "Item deleted"})
}
