package schedule

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/medtrack/internal/db"
)

var (
	// ErrInvalidRange 在区间终点早于起点时返回
	ErrInvalidRange = errors.New("invalid range: end before start")
	// ErrInvalidWindow 当给药窗口配置异常时返回
	ErrInvalidWindow = errors.New("invalid daily window")
	// ErrInvalidFrequency 当药品每日频次小于 1 时返回
	ErrInvalidFrequency = errors.New("invalid frequency per day")
)

// DailyWindow 描述每日给药窗口（整点小时，[StartHour, EndHour]）
// 默认 08:00–20:00。窗口内按频次均分是刻意的简化策略，
// 与既有数据兼容，不做药理学意义上的间隔优化
type DailyWindow struct {
	StartHour int
	EndHour   int
}

// DefaultWindow 返回默认给药窗口 08:00–20:00
func DefaultWindow() DailyWindow {
	return DailyWindow{StartHour: 8, EndHour: 20}
}

// Valid 校验窗口配置
func (w DailyWindow) Valid() bool {
	return w.StartHour >= 0 && w.EndHour <= 24 && w.StartHour < w.EndHour
}

// Occurrence 表示一次预期的服药事件，按需派生、从不落库
// 身份由 (MedicationID, DoseIndex, ScheduledAt) 三元组唯一确定，精确到分钟
type Occurrence struct {
	MedicationID   uint
	MedicationName string
	DoseIndex      int // 当日第几次，从 1 开始
	ScheduledAt    time.Time
}

// Generate 为给定药品集合生成 [rangeStart, rangeEnd] 区间内的全部服药事件。
// 纯函数：相同输入必然产出相同的有序序列。
// 排序规则：先按计划时刻升序，同一时刻按药品 ID 升序。
func Generate(medications []db.Medication, rangeStart, rangeEnd time.Time, window DailyWindow) ([]Occurrence, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidWindow, window.StartHour, window.EndHour)
	}

	start := DayStart(rangeStart)
	end := DayStart(rangeEnd)
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	for _, med := range medications {
		if med.FrequencyPerDay < 1 {
			return nil, fmt.Errorf("%w: medication %d", ErrInvalidFrequency, med.ID)
		}
	}

	var occurrences []Occurrence
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, med := range medications {
			if !medicationActiveOn(med, day) {
				continue
			}
			occurrences = append(occurrences, dosesForDay(med, day, window)...)
		}
	}

	slices.SortFunc(occurrences, func(a, b Occurrence) int {
		if diff := a.ScheduledAt.Compare(b.ScheduledAt); diff != 0 {
			return diff
		}
		return cmp.Compare(a.MedicationID, b.MedicationID)
	})

	return occurrences, nil
}

// DoseTimesForDay 返回单个药品在指定日期的全部计划时刻（忽略有效期判断）。
// 记录服药结果时用它校验计划时刻的合法性。
func DoseTimesForDay(med db.Medication, day time.Time, window DailyWindow) []Occurrence {
	if !window.Valid() || med.FrequencyPerDay < 1 {
		return nil
	}
	return dosesForDay(med, DayStart(day), window)
}

func dosesForDay(med db.Medication, day time.Time, window DailyWindow) []Occurrence {
	span := float64(window.EndHour - window.StartHour)
	doses := make([]Occurrence, 0, med.FrequencyPerDay)

	for i := 0; i < med.FrequencyPerDay; i++ {
		exact := float64(window.StartHour) + float64(i)*span/float64(med.FrequencyPerDay)
		hour := int(exact)
		minute := int(math.Round((exact - float64(hour)) * 60))
		if minute == 60 {
			hour++
			minute = 0
		}

		doses = append(doses, Occurrence{
			MedicationID:   med.ID,
			MedicationName: med.Name,
			DoseIndex:      i + 1,
			ScheduledAt:    time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()),
		})
	}

	return doses
}

func medicationActiveOn(med db.Medication, day time.Time) bool {
	if day.Before(DayStart(med.StartDate)) {
		return false
	}
	if med.EndDate != nil && day.After(DayStart(*med.EndDate)) {
		return false
	}
	return true
}

// DayStart 将时间归一化到当日零点，保持原时区
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
