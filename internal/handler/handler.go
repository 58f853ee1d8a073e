package handler

import (
	"errors"

	"github.com/bitfantasy/linelog/internal/model/entity"
	"github.com/bitfantasy/linelog/internal/repository"
	"github.com/bitfantasy/linelog/internal/service"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Record    *RecordHandler
	Analytics *AnalyticsHandler
	Export    *ExportHandler
	SSE       *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Record:    NewRecordHandler(svc.Record),
		Analytics: NewAnalyticsHandler(svc.Record, svc.Dashboard),
		Export:    NewExportHandler(svc.Export),
		SSE:       NewSSEHandler(),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// serviceError 服务层错误映射：校验错误→400，未找到→404，其余→500
func serviceError(c *gin.Context, err error, notFoundMessage string) {
	var validationErr *entity.ValidationError
	if errors.As(err, &validationErr) {
		BadRequest(c, validationErr.Error())
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		NotFound(c, notFoundMessage)
		return
	}
	InternalError(c, err.Error())
}
