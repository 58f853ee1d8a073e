package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/linelog/internal/model/entity"
	"github.com/bitfantasy/linelog/internal/repository"
	"github.com/bitfantasy/linelog/internal/sse"
	"github.com/google/uuid"
)

// RecordService 记录服务：创建时负责校验、质检记录按业务ID做归并
type RecordService struct {
	recordRepo *repository.RecordRepository
}

// NewRecordService 创建记录服务
func NewRecordService(recordRepo *repository.RecordRepository) *RecordService {
	return &RecordService{recordRepo: recordRepo}
}

// MeasurementInput 测量值输入
type MeasurementInput struct {
	Value        *float64 `json:"value"`
	Unit         string   `json:"unit"`
	DeviceSource string   `json:"deviceSource"`
}

// MeasurementPatch 测量值部分更新：未提交的键保留原值
type MeasurementPatch struct {
	Value        *float64 `json:"value"`
	Unit         *string  `json:"unit"`
	DeviceSource *string  `json:"deviceSource"`
}

// CreateRecordRequest 创建记录请求
type CreateRecordRequest struct {
	Category string `json:"category" binding:"required"`

	SqueegeeSpeed *MeasurementInput `json:"squeegeeSpeed"`
	PrintPressure *MeasurementInput `json:"printPressure"`
	InkViscosity  *MeasurementInput `json:"inkViscosity"`
	Humidity      *MeasurementInput `json:"humidity"`
	Temperature   *MeasurementInput `json:"temperature"`
	Speed         *MeasurementInput `json:"speed"`

	Station         string   `json:"station"`
	BusinessID      string   `json:"businessId"`
	Outcome         string   `json:"outcome"`
	Reworkable      *bool    `json:"reworkable"`
	WasReworked     *bool    `json:"wasReworked"`
	FailureCauses   []string `json:"failureCauses"`
	AffectedOutputs []string `json:"affectedOutputs"`

	Priority           string     `json:"priority"`
	AffectedMetrics    []string   `json:"affectedMetrics"`
	Operator           string     `json:"operator"`
	ClassificationCode string     `json:"classificationCode"`
	Comments           string     `json:"comments"`
	RecordedAt         *time.Time `json:"recordedAt"`
}

// UpdateRecordRequest 部分更新请求：未提交的字段保留原值
type UpdateRecordRequest struct {
	SqueegeeSpeed *MeasurementPatch `json:"squeegeeSpeed"`
	PrintPressure *MeasurementPatch `json:"printPressure"`
	InkViscosity  *MeasurementPatch `json:"inkViscosity"`
	Humidity      *MeasurementPatch `json:"humidity"`
	Temperature   *MeasurementPatch `json:"temperature"`
	Speed         *MeasurementPatch `json:"speed"`

	Station         *string   `json:"station"`
	Outcome         *string   `json:"outcome"`
	Reworkable      *bool     `json:"reworkable"`
	WasReworked     *bool     `json:"wasReworked"`
	FailureCauses   *[]string `json:"failureCauses"`
	AffectedOutputs *[]string `json:"affectedOutputs"`

	Priority           *string    `json:"priority"`
	AffectedMetrics    *[]string  `json:"affectedMetrics"`
	Operator           *string    `json:"operator"`
	ClassificationCode *string    `json:"classificationCode"`
	Comments           *string    `json:"comments"`
	RecordedAt         *time.Time `json:"recordedAt"`
}

func measurementFromInput(in *MeasurementInput) *entity.Measurement {
	if in == nil || in.Value == nil {
		return nil
	}
	return &entity.Measurement{
		Value:        *in.Value,
		Unit:         in.Unit,
		DeviceSource: in.DeviceSource,
	}
}

func recordFromRequest(req *CreateRecordRequest) *entity.Record {
	record := &entity.Record{
		Category:           req.Category,
		SqueegeeSpeed:      measurementFromInput(req.SqueegeeSpeed),
		PrintPressure:      measurementFromInput(req.PrintPressure),
		InkViscosity:       measurementFromInput(req.InkViscosity),
		Humidity:           measurementFromInput(req.Humidity),
		Temperature:        measurementFromInput(req.Temperature),
		Speed:              measurementFromInput(req.Speed),
		Station:            req.Station,
		BusinessID:         req.BusinessID,
		Outcome:            req.Outcome,
		Reworkable:         req.Reworkable,
		FailureCauses:      req.FailureCauses,
		AffectedOutputs:    req.AffectedOutputs,
		Priority:           req.Priority,
		AffectedMetrics:    req.AffectedMetrics,
		Operator:           req.Operator,
		ClassificationCode: req.ClassificationCode,
		Comments:           req.Comments,
	}
	if req.WasReworked != nil {
		record.WasReworked = *req.WasReworked
	}
	if req.RecordedAt != nil {
		record.RecordedAt = *req.RecordedAt
	}
	return record
}

// applyDefaults 补全服务端派生字段
func applyDefaults(record *entity.Record) {
	if record.Priority == "" {
		record.Priority = entity.PriorityMedium
	}
	if record.Operator == "" {
		record.Operator = entity.OperatorUnknown
	}
	if record.ClassificationCode == "" {
		record.ClassificationCode = entity.DefaultClassificationCode(record.Category)
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}
	// 选择了有映射的失败原因且未手工指定受影响输出时自动推导
	if len(record.AffectedOutputs) == 0 && len(record.FailureCauses) > 0 {
		record.AffectedOutputs = entity.DeriveAffectedOutputs(record.FailureCauses)
	}
	record.ApplyMeasurementDefaults()
}

// Create 创建记录。质检记录携带业务ID时先按业务ID归并：
// 命中已有记录则就地更新（同一ID），否则新建。
// 返回的bool表示本次提交归并成了一次更新。
func (s *RecordService) Create(ctx context.Context, req *CreateRecordRequest) (*entity.Record, bool, error) {
	record := recordFromRequest(req)

	if record.Category == entity.CategoryQualityControl && record.BusinessID != "" {
		existing, err := s.recordRepo.FindByBusinessID(ctx, record.BusinessID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, false, fmt.Errorf("find record by business ID: %w", err)
		}
		if err == nil {
			merged, err := s.reconcile(ctx, existing, req)
			if err != nil {
				return nil, false, err
			}
			return merged, true, nil
		}
	}

	applyDefaults(record)
	if err := record.Validate(true); err != nil {
		return nil, false, err
	}

	record.ID = newID()
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.recordRepo.Create(ctx, record); err != nil {
		return nil, false, fmt.Errorf("create record: %w", err)
	}

	sse.PublishRecordUpdate(record.ID, record.Category, sse.ActionCreated)
	return record, false, nil
}

// reconcile 质检归并：同一业务ID的再次提交视为对已有记录的修订。
// 已有记录处于pending-rework时其字段作为缺省值整体前移，操作员显式提交的值覆盖之；
// 新结论为pass/fail则认定返工完成，置wasReworked。
func (s *RecordService) reconcile(ctx context.Context, existing *entity.Record, req *CreateRecordRequest) (*entity.Record, error) {
	wasPendingRework := existing.Outcome == entity.OutcomePendingRework

	if m := measurementFromInput(req.SqueegeeSpeed); m != nil {
		existing.SqueegeeSpeed = m
	}
	if m := measurementFromInput(req.PrintPressure); m != nil {
		existing.PrintPressure = m
	}
	if m := measurementFromInput(req.InkViscosity); m != nil {
		existing.InkViscosity = m
	}
	if m := measurementFromInput(req.Humidity); m != nil {
		existing.Humidity = m
	}
	if m := measurementFromInput(req.Temperature); m != nil {
		existing.Temperature = m
	}
	if m := measurementFromInput(req.Speed); m != nil {
		existing.Speed = m
	}

	if req.Station != "" {
		existing.Station = req.Station
	}
	if req.Outcome != "" {
		existing.Outcome = req.Outcome
	}
	if req.Reworkable != nil {
		existing.Reworkable = req.Reworkable
	}
	if req.WasReworked != nil {
		existing.WasReworked = *req.WasReworked
	}
	if req.FailureCauses != nil {
		existing.FailureCauses = req.FailureCauses
	}
	if req.AffectedOutputs != nil {
		existing.AffectedOutputs = req.AffectedOutputs
	}
	if req.Priority != "" {
		existing.Priority = req.Priority
	}
	if req.AffectedMetrics != nil {
		existing.AffectedMetrics = req.AffectedMetrics
	}
	if req.Operator != "" {
		existing.Operator = req.Operator
	}
	if req.ClassificationCode != "" {
		existing.ClassificationCode = req.ClassificationCode
	}
	if req.Comments != "" {
		existing.Comments = req.Comments
	}
	if req.RecordedAt != nil {
		existing.RecordedAt = *req.RecordedAt
	} else {
		existing.RecordedAt = time.Now()
	}

	// 返工结果落盘
	if wasPendingRework && (existing.Outcome == entity.OutcomePass || existing.Outcome == entity.OutcomeFail) {
		existing.WasReworked = true
	}

	if len(existing.AffectedOutputs) == 0 && len(existing.FailureCauses) > 0 {
		existing.AffectedOutputs = entity.DeriveAffectedOutputs(existing.FailureCauses)
	}

	existing.ApplyMeasurementDefaults()
	if err := existing.Validate(false); err != nil {
		return nil, err
	}

	existing.UpdatedAt = time.Now()
	if err := s.recordRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	sse.PublishRecordUpdate(existing.ID, existing.Category, sse.ActionUpdated)
	return existing, nil
}

// Get 获取记录
func (s *RecordService) Get(ctx context.Context, id string) (*entity.Record, error) {
	record, err := s.recordRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List 获取记录列表
func (s *RecordService) List(ctx context.Context, filters map[string]interface{}, sortNewest bool) ([]entity.Record, error) {
	records, err := s.recordRepo.List(ctx, filters, sortNewest)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Update 部分更新：逐字段合并，测量子对象逐键合并，合并后重新校验
func (s *RecordService) Update(ctx context.Context, id string, req *UpdateRecordRequest) (*entity.Record, error) {
	record, err := s.recordRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasPendingRework := record.Outcome == entity.OutcomePendingRework

	record.SqueegeeSpeed = mergeMeasurement(record.SqueegeeSpeed, req.SqueegeeSpeed)
	record.PrintPressure = mergeMeasurement(record.PrintPressure, req.PrintPressure)
	record.InkViscosity = mergeMeasurement(record.InkViscosity, req.InkViscosity)
	record.Humidity = mergeMeasurement(record.Humidity, req.Humidity)
	record.Temperature = mergeMeasurement(record.Temperature, req.Temperature)
	record.Speed = mergeMeasurement(record.Speed, req.Speed)

	if req.Station != nil {
		record.Station = *req.Station
	}
	if req.Outcome != nil {
		record.Outcome = *req.Outcome
	}
	if req.Reworkable != nil {
		record.Reworkable = req.Reworkable
	}
	if req.WasReworked != nil {
		record.WasReworked = *req.WasReworked
	}
	if req.FailureCauses != nil {
		record.FailureCauses = *req.FailureCauses
	}
	if req.AffectedOutputs != nil {
		record.AffectedOutputs = *req.AffectedOutputs
	}
	if req.Priority != nil {
		record.Priority = *req.Priority
	}
	if req.AffectedMetrics != nil {
		record.AffectedMetrics = *req.AffectedMetrics
	}
	if req.Operator != nil {
		record.Operator = *req.Operator
	}
	if req.ClassificationCode != nil {
		record.ClassificationCode = *req.ClassificationCode
	}
	if req.Comments != nil {
		record.Comments = *req.Comments
	}
	if req.RecordedAt != nil {
		record.RecordedAt = *req.RecordedAt
	}

	if wasPendingRework && (record.Outcome == entity.OutcomePass || record.Outcome == entity.OutcomeFail) {
		record.WasReworked = true
	}

	if req.FailureCauses != nil && req.AffectedOutputs == nil && len(record.AffectedOutputs) == 0 {
		record.AffectedOutputs = entity.DeriveAffectedOutputs(record.FailureCauses)
	}

	record.ApplyMeasurementDefaults()
	if err := record.Validate(false); err != nil {
		return nil, err
	}

	record.UpdatedAt = time.Now()
	if err := s.recordRepo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	sse.PublishRecordUpdate(record.ID, record.Category, sse.ActionUpdated)
	return record, nil
}

// Delete 删除记录。删除不存在的ID照常返回成功（幂等删除）。
func (s *RecordService) Delete(ctx context.Context, id string) error {
	if err := s.recordRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	sse.PublishRecordUpdate(id, "", sse.ActionDeleted)
	return nil
}

// mergeMeasurement 测量子对象逐键合并：patch为nil保留原值，原值为nil时patch需带value才生效
func mergeMeasurement(current *entity.Measurement, patch *MeasurementPatch) *entity.Measurement {
	if patch == nil {
		return current
	}
	if current == nil {
		if patch.Value == nil {
			return nil
		}
		m := &entity.Measurement{Value: *patch.Value}
		if patch.Unit != nil {
			m.Unit = *patch.Unit
		}
		if patch.DeviceSource != nil {
			m.DeviceSource = *patch.DeviceSource
		}
		return m
	}
	if patch.Value != nil {
		current.Value = *patch.Value
	}
	if patch.Unit != nil {
		current.Unit = *patch.Unit
	}
	if patch.DeviceSource != nil {
		current.DeviceSource = *patch.DeviceSource
	}
	return current
}

func newID() string {
	id := uuid.New().String()
	if len(id) > 32 {
		id = id[:32]
	}
	return id
}
