package service

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/linelog/internal/model/entity"
	"github.com/bitfantasy/linelog/internal/repository"
	"github.com/bitfantasy/linelog/internal/testutil"
)

func TestBuildSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	mk := func(outcome string, temp float64, age time.Duration) entity.Record {
		r := qcRecord(outcome, now.Add(-age))
		r.Temperature = &entity.Measurement{Value: temp}
		return r
	}
	records := []entity.Record{
		mk(entity.OutcomePass, 20.5, 10*time.Minute),
		mk(entity.OutcomePass, 21.0, 20*time.Minute),
		mk(entity.OutcomeFail, 21.5, 30*time.Minute),
		// 窗口外的记录不计入
		mk(entity.OutcomeFail, 21.5, 48*time.Hour),
	}

	snapshot := buildSnapshot(records, WindowHour, now)
	if snapshot.Window != WindowHour {
		t.Errorf("Expected window hour, got %s", snapshot.Window)
	}
	if snapshot.Summary.Total != 3 {
		t.Errorf("Expected 3 records in window, got %d", snapshot.Summary.Total)
	}
	if snapshot.Summary.PassRate != 66.7 {
		t.Errorf("Expected pass rate 66.7, got %v", snapshot.Summary.PassRate)
	}

	bins, ok := snapshot.Bins[entity.MeasurementTemperature]
	if !ok || len(bins) != 1 {
		t.Fatalf("Expected 1 temperature bin, got %v", snapshot.Bins)
	}
	if bins[0].DefectRate != 33.3 {
		t.Errorf("Expected bin defect rate 33.3, got %v", bins[0].DefectRate)
	}
}

func TestDashboardRefreshWithoutCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	recordSvc := NewRecordService(repos.Record)
	svc := NewDashboardService(repos.Record, nil, 5*time.Second, nil)
	ctx := context.Background()

	if _, _, err := recordSvc.Create(ctx, &CreateRecordRequest{
		Category:   entity.CategoryQualityControl,
		BusinessID: "D-1",
		Outcome:    entity.OutcomePass,
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	snapshot, err := svc.Snapshot(ctx, WindowAll)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if snapshot.Summary.Total != 1 || snapshot.Summary.Pass != 1 {
		t.Errorf("Unexpected summary: %+v", snapshot.Summary)
	}
}
