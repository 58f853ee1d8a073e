package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/linelog/internal/model/entity"
	"github.com/bitfantasy/linelog/internal/repository"
	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
)

// ExportService 导出服务：记录集导出为xlsx/csv，可选归档到MinIO
type ExportService struct {
	recordRepo  *repository.RecordRepository
	minioClient *minio.Client
	bucket      string
}

// NewExportService 创建导出服务。minioClient为nil时不支持归档。
func NewExportService(recordRepo *repository.RecordRepository, minioClient *minio.Client, bucket string) *ExportService {
	return &ExportService{
		recordRepo:  recordRepo,
		minioClient: minioClient,
		bucket:      bucket,
	}
}

var exportColumns = []string{
	"ID", "Category", "Business ID", "Station", "Outcome", "Reworkable", "Reworked",
	"Failure Causes", "Affected Outputs", "Priority", "Operator", "Classification Code",
	"Squeegee Speed", "Print Pressure", "Ink Viscosity", "Humidity", "Temperature", "Speed",
	"Comments", "Recorded At",
}

func exportRow(r *entity.Record) []string {
	reworkable := ""
	if r.Reworkable != nil {
		reworkable = strconv.FormatBool(*r.Reworkable)
	}
	return []string{
		r.ID,
		r.Category,
		r.BusinessID,
		r.Station,
		r.Outcome,
		reworkable,
		strconv.FormatBool(r.WasReworked),
		strings.Join(r.FailureCauses, ", "),
		strings.Join(r.AffectedOutputs, ", "),
		r.Priority,
		r.Operator,
		r.ClassificationCode,
		formatMeasurement(r.SqueegeeSpeed),
		formatMeasurement(r.PrintPressure),
		formatMeasurement(r.InkViscosity),
		formatMeasurement(r.Humidity),
		formatMeasurement(r.Temperature),
		formatMeasurement(r.Speed),
		r.Comments,
		r.RecordedAt.Format(time.RFC3339),
	}
}

func formatMeasurement(m *entity.Measurement) string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%g %s", m.Value, m.Unit)
}

// BuildWorkbook 生成xlsx工作簿
func (s *ExportService) BuildWorkbook(ctx context.Context, filters map[string]interface{}) ([]byte, error) {
	records, err := s.recordRepo.List(ctx, filters, true)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Records"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		f.SetCellValue(sheet, cell, title)
	}

	for row, record := range records {
		for col, value := range exportRow(&record) {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildCSV 生成CSV
func (s *ExportService) BuildCSV(ctx context.Context, filters map[string]interface{}) ([]byte, error) {
	records, err := s.recordRepo.List(ctx, filters, true)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportColumns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range records {
		if err := w.Write(exportRow(&record)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Archive 把导出文件归档到MinIO，返回对象名
func (s *ExportService) Archive(ctx context.Context, data []byte, contentType, extension string) (string, error) {
	if s.minioClient == nil {
		return "", fmt.Errorf("archive storage is not configured")
	}

	objectName := fmt.Sprintf("exports/records_%s%s", time.Now().Format("20060102_150405"), extension)
	_, err := s.minioClient.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return objectName, nil
}
