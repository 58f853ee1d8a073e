package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bitfantasy/linelog/internal/service"
	"github.com/gin-gonic/gin"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	svc *service.ExportService
}

// NewExportHandler 创建导出处理器
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// Export 导出记录为xlsx或csv，archive=true时同时归档到对象存储
func (h *ExportHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "xlsx")

	filters := map[string]interface{}{
		"category": c.Query("category"),
		"operator": c.Query("operator"),
	}

	var (
		data        []byte
		contentType string
		extension   string
		err         error
	)

	switch format {
	case "xlsx":
		data, err = h.svc.BuildWorkbook(c.Request.Context(), filters)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		extension = ".xlsx"
	case "csv":
		data, err = h.svc.BuildCSV(c.Request.Context(), filters)
		contentType = "text/csv"
		extension = ".csv"
	default:
		BadRequest(c, "Unsupported export format: "+format)
		return
	}
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	if c.Query("archive") == "true" {
		objectName, archiveErr := h.svc.Archive(c.Request.Context(), data, contentType, extension)
		if archiveErr != nil {
			InternalError(c, archiveErr.Error())
			return
		}
		c.Header("X-Archive-Object", objectName)
	}

	filename := fmt.Sprintf("records_%s%s", time.Now().Format("20060102_150405"), extension)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}
