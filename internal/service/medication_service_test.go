package service

import (
	"errors"
	"testing"
	"time"

	"github.com/medtrack/internal/db"
)

func TestMedicationServiceCreateAndList(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewMedicationService(db.DB)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)

	medication, err := svc.Create(1, MedicationInput{
		Name:            "二甲双胍",
		Dose:            "500mg 口服",
		FrequencyPerDay: 2,
		StartDate:       start,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if medication.ID == 0 {
		t.Fatal("expected medication to have ID")
	}

	medications, err := svc.List(1, MedicationFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(medications) != 1 {
		t.Fatalf("expected 1 medication, got %d", len(medications))
	}

	// 其他用户看不到
	medications, err = svc.List(2, MedicationFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(medications) != 0 {
		t.Fatalf("expected 0 medications for other user, got %d", len(medications))
	}

	// 不合法频率
	if _, err := svc.Create(1, MedicationInput{Name: "坏配置", FrequencyPerDay: 0, StartDate: start}); !errors.Is(err, ErrMedicationInvalidFrequency) {
		t.Fatalf("expected invalid frequency error, got %v", err)
	}

	// 结束日早于开始日
	end := start.AddDate(0, 0, -1)
	if _, err := svc.Create(1, MedicationInput{Name: "坏日期", FrequencyPerDay: 1, StartDate: start, EndDate: &end}); !errors.Is(err, ErrMedicationInvalidDates) {
		t.Fatalf("expected invalid dates error, got %v", err)
	}
}

func TestMedicationServiceActiveFilter(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewMedicationService(db.DB)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	ended := start.AddDate(0, 0, 5)

	if _, err := svc.Create(1, MedicationInput{Name: "长期药", FrequencyPerDay: 1, StartDate: start}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Create(1, MedicationInput{Name: "短期药", FrequencyPerDay: 1, StartDate: start, EndDate: &ended}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// 结束日之后只剩长期药
	after := ended.AddDate(0, 0, 1)
	medications, err := svc.List(1, MedicationFilter{ActiveOn: &after})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(medications) != 1 || medications[0].Name != "长期药" {
		t.Fatalf("unexpected active medications: %+v", medications)
	}

	// 结束日当天两者都在
	medications, err = svc.List(1, MedicationFilter{ActiveOn: &ended})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(medications) != 2 {
		t.Fatalf("expected 2 active medications on end date, got %d", len(medications))
	}
}

func TestMedicationServiceOwnership(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewMedicationService(db.DB)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)

	medication, err := svc.Create(1, MedicationInput{Name: "二甲双胍", FrequencyPerDay: 1, StartDate: start})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := svc.Get(2, medication.ID); !errors.Is(err, ErrMedicationForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	if _, err := svc.Get(1, 999); !errors.Is(err, ErrMedicationNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestMedicationServiceUpdateAndDelete(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewMedicationService(db.DB)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)

	medication, err := svc.Create(1, MedicationInput{Name: "维生素D", FrequencyPerDay: 1, StartDate: start})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := svc.Update(1, medication.ID, MedicationInput{
		Name:            "维生素D3",
		Dose:            "2000IU",
		FrequencyPerDay: 2,
		StartDate:       start,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Name != "维生素D3" || updated.FrequencyPerDay != 2 {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if err := svc.Delete(1, medication.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := svc.Get(1, medication.ID); !errors.Is(err, ErrMedicationNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
