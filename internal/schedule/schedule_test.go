package schedule

import (
	"testing"
	"time"

	"github.com/medtrack/internal/db"
	"gorm.io/gorm"
)

func medWithID(id uint, name string, frequency int, start time.Time, end *time.Time) db.Medication {
	return db.Medication{
		Model:           gorm.Model{ID: id},
		Name:            name,
		FrequencyPerDay: frequency,
		StartDate:       start,
		EndDate:         end,
	}
}

func TestGenerateEvenlySpacedDoses(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	med := medWithID(1, "二甲双胍", 2, day, nil)

	occurrences, err := Generate([]db.Medication{med}, day, day, DefaultWindow())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(occurrences) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(occurrences))
	}

	// 08:00–20:00 窗口，频次 2 → 08:00 与 14:00
	want := []time.Time{
		time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local),
		time.Date(2025, 3, 10, 14, 0, 0, 0, time.Local),
	}
	for i, occ := range occurrences {
		if !occ.ScheduledAt.Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %v, got %v", i, want[i], occ.ScheduledAt)
		}
		if occ.DoseIndex != i+1 {
			t.Fatalf("occurrence %d: expected dose index %d, got %d", i, i+1, occ.DoseIndex)
		}
	}
}

func TestGenerateMinutePrecision(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	med := medWithID(1, "阿莫西林", 5, day, nil)

	occurrences, err := Generate([]db.Medication{med}, day, day, DefaultWindow())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	// 12 小时 / 5 次 = 2.4 小时一班，分钟按 round(frac*60) 截断
	want := []string{"08:00", "10:24", "12:48", "15:12", "17:36"}
	for i, occ := range occurrences {
		if got := occ.ScheduledAt.Format("15:04"); got != want[i] {
			t.Fatalf("dose %d: expected %s, got %s", i+1, want[i], got)
		}
		if occ.ScheduledAt.Second() != 0 || occ.ScheduledAt.Nanosecond() != 0 {
			t.Fatalf("dose %d: expected minute precision, got %v", i+1, occ.ScheduledAt)
		}
	}
}

func TestGenerateOrderingAndTieBreak(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	meds := []db.Medication{
		medWithID(7, "乙药", 1, day, nil),
		medWithID(3, "甲药", 1, day, nil),
	}

	occurrences, err := Generate(meds, day, day.AddDate(0, 0, 1), DefaultWindow())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(occurrences) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(occurrences))
	}

	for i := 1; i < len(occurrences); i++ {
		prev, cur := occurrences[i-1], occurrences[i]
		if cur.ScheduledAt.Before(prev.ScheduledAt) {
			t.Fatalf("occurrences out of order at %d", i)
		}
		if cur.ScheduledAt.Equal(prev.ScheduledAt) && cur.MedicationID < prev.MedicationID {
			t.Fatalf("tie not broken by medication id at %d", i)
		}
	}

	// 同一时刻按药品 ID 升序
	if occurrences[0].MedicationID != 3 || occurrences[1].MedicationID != 7 {
		t.Fatalf("unexpected tie-break order: %d, %d", occurrences[0].MedicationID, occurrences[1].MedicationID)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	meds := []db.Medication{
		medWithID(1, "二甲双胍", 3, day, nil),
		medWithID(2, "维生素D", 1, day, nil),
	}

	first, err := Generate(meds, day, day.AddDate(0, 0, 6), DefaultWindow())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	second, err := Generate(meds, day, day.AddDate(0, 0, 6), DefaultWindow())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected identical lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sequences diverge at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGenerateRespectsActiveInterval(t *testing.T) {
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	yesterday := today.AddDate(0, 0, -1)

	ended := medWithID(1, "阿莫西林", 2, today.AddDate(0, 0, -10), &yesterday)
	notStarted := medWithID(2, "新药", 1, today.AddDate(0, 0, 3), nil)

	occurrences, err := Generate([]db.Medication{ended, notStarted}, today, today.AddDate(0, 0, 1), DefaultWindow())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(occurrences) != 0 {
		t.Fatalf("expected no occurrences, got %d", len(occurrences))
	}

	// 结束日当天仍应生成
	occurrences, err = Generate([]db.Medication{ended}, yesterday, yesterday, DefaultWindow())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(occurrences) != 2 {
		t.Fatalf("expected 2 occurrences on end date, got %d", len(occurrences))
	}
}

func TestGenerateValidation(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)

	if _, err := Generate(nil, day, day.AddDate(0, 0, -1), DefaultWindow()); err == nil {
		t.Fatal("expected error for inverted range")
	}

	bad := medWithID(1, "坏配置", 0, day, nil)
	if _, err := Generate([]db.Medication{bad}, day, day, DefaultWindow()); err == nil {
		t.Fatal("expected error for zero frequency")
	}

	if _, err := Generate(nil, day, day, DailyWindow{StartHour: 20, EndHour: 8}); err == nil {
		t.Fatal("expected error for inverted window")
	}
}
