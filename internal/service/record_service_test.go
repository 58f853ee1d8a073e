package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/linelog/internal/model/entity"
	"github.com/bitfantasy/linelog/internal/repository"
	"github.com/bitfantasy/linelog/internal/testutil"
)

func setupRecordService(t *testing.T) *RecordService {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewRecordService(repos.Record)
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(s string) *string     { return &s }

func silveringRequest() *CreateRecordRequest {
	return &CreateRecordRequest{
		Category:      entity.CategorySilvering,
		SqueegeeSpeed: &MeasurementInput{Value: floatPtr(120)},
		PrintPressure: &MeasurementInput{Value: floatPtr(35)},
		InkViscosity:  &MeasurementInput{Value: floatPtr(18)},
		Operator:      "alice",
	}
}

func TestCreateSilveringRecordAppliesDefaults(t *testing.T) {
	svc := setupRecordService(t)
	ctx := context.Background()

	record, amended, err := svc.Create(ctx, silveringRequest())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if amended {
		t.Error("Expected fresh insert, got amendment")
	}
	if record.ID == "" || len(record.ID) > 32 {
		t.Errorf("Unexpected ID: %q", record.ID)
	}
	if record.Priority != entity.PriorityMedium {
		t.Errorf("Expected default priority medium, got %s", record.Priority)
	}
	if record.ClassificationCode != "1100" {
		t.Errorf("Expected default classification code 1100, got %s", record.ClassificationCode)
	}
	if record.RecordedAt.IsZero() {
		t.Error("Expected recordedAt to be set")
	}
	if record.SqueegeeSpeed.Unit != "mm/s" {
		t.Errorf("Expected default unit mm/s, got %s", record.SqueegeeSpeed.Unit)
	}
}

func TestCreateRejectsMissingMeasurements(t *testing.T) {
	svc := setupRecordService(t)

	req := silveringRequest()
	req.InkViscosity = nil

	var verr *entity.ValidationError
	if _, _, err := svc.Create(context.Background(), req); !errors.As(err, &verr) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestCreateDefaultsOperatorToUnknown(t *testing.T) {
	svc := setupRecordService(t)

	req := silveringRequest()
	req.Operator = ""

	record, _, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if record.Operator != entity.OperatorUnknown {
		t.Errorf("Expected operator Unknown, got %s", record.Operator)
	}
}

func TestCreateQCDerivesAffectedOutputs(t *testing.T) {
	svc := setupRecordService(t)

	record, _, err := svc.Create(context.Background(), &CreateRecordRequest{
		Category:      entity.CategoryQualityControl,
		BusinessID:    "BATCH-100",
		Outcome:       entity.OutcomeFail,
		FailureCauses: []string{"Voids"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(record.AffectedOutputs) != 2 {
		t.Fatalf("Expected 2 derived outputs, got %v", record.AffectedOutputs)
	}
	if record.AffectedOutputs[0] != "No Conductivity and circuitry" {
		t.Errorf("Unexpected derived outputs: %v", record.AffectedOutputs)
	}
}

func TestReconcileSameBusinessIDUpdatesInPlace(t *testing.T) {
	svc := setupRecordService(t)
	ctx := context.Background()

	first, _, err := svc.Create(ctx, &CreateRecordRequest{
		Category:      entity.CategoryQualityControl,
		BusinessID:    "P100",
		Outcome:       entity.OutcomePendingRework,
		FailureCauses: []string{"Voids"},
		Operator:      "alice",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 同一业务ID再次提交：修订而非新建
	second, amended, err := svc.Create(ctx, &CreateRecordRequest{
		Category:   entity.CategoryQualityControl,
		BusinessID: "P100",
		Outcome:    entity.OutcomePass,
		Operator:   "bob",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !amended {
		t.Error("Expected amendment, got fresh insert")
	}
	if second.ID != first.ID {
		t.Errorf("Expected in-place update with same ID, got %s vs %s", second.ID, first.ID)
	}
	if second.Outcome != entity.OutcomePass {
		t.Errorf("Expected outcome pass, got %s", second.Outcome)
	}
	// pending-rework → pass 认定返工完成
	if !second.WasReworked {
		t.Error("Expected wasReworked to be set after rework resolution")
	}
	// 未提交的字段保留原值
	if len(second.FailureCauses) != 1 || second.FailureCauses[0] != "Voids" {
		t.Errorf("Expected failure causes carried forward, got %v", second.FailureCauses)
	}
	if second.Operator != "bob" {
		t.Errorf("Expected operator overridden, got %s", second.Operator)
	}

	records, err := svc.List(ctx, nil, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record after reconciliation, got %d", len(records))
	}
}

func TestReconcileBusinessIDCaseInsensitive(t *testing.T) {
	svc := setupRecordService(t)
	ctx := context.Background()

	first, _, err := svc.Create(ctx, &CreateRecordRequest{
		Category:   entity.CategoryQualityControl,
		BusinessID: "Batch-7",
		Outcome:    entity.OutcomePass,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	second, amended, err := svc.Create(ctx, &CreateRecordRequest{
		Category:   entity.CategoryQualityControl,
		BusinessID: "BATCH-7",
		Outcome:    entity.OutcomeFail,
		FailureCauses: []string{
			"Contamination",
		},
		AffectedOutputs: []string{"Out of specs"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !amended || second.ID != first.ID {
		t.Errorf("Expected case-insensitive match on business ID")
	}
}

func TestReconcileDistinctBusinessIDsCreateSeparateRecords(t *testing.T) {
	svc := setupRecordService(t)
	ctx := context.Background()

	if _, _, err := svc.Create(ctx, &CreateRecordRequest{
		Category: entity.CategoryQualityControl, BusinessID: "A-1", Outcome: entity.OutcomePass,
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	_, amended, err := svc.Create(ctx, &CreateRecordRequest{
		Category: entity.CategoryQualityControl, BusinessID: "A-2", Outcome: entity.OutcomePass,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if amended {
		t.Error("Expected distinct business ID to create a new record")
	}

	records, _ := svc.List(ctx, nil, false)
	if len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}
}

func TestUpdateMergesMeasurementKeys(t *testing.T) {
	svc := setupRecordService(t)
	ctx := context.Background()

	record, _, err := svc.Create(ctx, silveringRequest())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	updated, err := svc.Update(ctx, record.ID, &UpdateRecordRequest{
		SqueegeeSpeed: &MeasurementPatch{Value: floatPtr(150)},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if updated.SqueegeeSpeed.Value != 150 {
		t.Errorf("Expected value 150, got %v", updated.SqueegeeSpeed.Value)
	}
	// 未提交的键保留
	if updated.SqueegeeSpeed.Unit != "mm/s" {
		t.Errorf("Expected unit preserved, got %s", updated.SqueegeeSpeed.Unit)
	}
	if updated.PrintPressure == nil || updated.PrintPressure.Value != 35 {
		t.Errorf("Expected other measurements untouched, got %+v", updated.PrintPressure)
	}
}

func TestUpdatePendingReworkToPassSetsWasReworked(t *testing.T) {
	svc := setupRecordService(t)
	ctx := context.Background()

	record, _, err := svc.Create(ctx, &CreateRecordRequest{
		Category:      entity.CategoryQualityControl,
		BusinessID:    "P200",
		Outcome:       entity.OutcomePendingRework,
		FailureCauses: []string{"Cracks or Scratches"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if record.WasReworked {
		t.Error("Expected wasReworked false before resolution")
	}

	updated, err := svc.Update(ctx, record.ID, &UpdateRecordRequest{
		Outcome: strPtr(entity.OutcomePass),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !updated.WasReworked {
		t.Error("Expected wasReworked true after pending-rework resolved to pass")
	}
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	svc := setupRecordService(t)

	_, err := svc.Update(context.Background(), "no-such-id", &UpdateRecordRequest{
		Comments: strPtr("hello"),
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc := setupRecordService(t)
	ctx := context.Background()

	record, _, err := svc.Create(ctx, silveringRequest())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := svc.Delete(ctx, record.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// 再删一次照常成功
	if err := svc.Delete(ctx, record.ID); err != nil {
		t.Errorf("Expected idempotent delete, got %v", err)
	}
	if _, err := svc.Get(ctx, record.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestListFiltersByCategory(t *testing.T) {
	svc := setupRecordService(t)
	ctx := context.Background()

	if _, _, err := svc.Create(ctx, silveringRequest()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, _, err := svc.Create(ctx, &CreateRecordRequest{
		Category:    entity.CategoryStreeting,
		Temperature: &MeasurementInput{Value: floatPtr(21)},
		Speed:       &MeasurementInput{Value: floatPtr(40)},
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	records, err := svc.List(ctx, map[string]interface{}{"category": entity.CategoryStreeting}, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Category != entity.CategoryStreeting {
		t.Errorf("Expected 1 streeting record, got %+v", records)
	}
}
