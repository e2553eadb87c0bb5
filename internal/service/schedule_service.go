package service

import (
	"time"

	"github.com/medtrack/internal/schedule"
	"gorm.io/gorm"
)

// ScheduleService 是所有排期视图的唯一入口：
// 提醒页、打卡页与仪表盘共用同一套生成/分类/汇总算法，
// 避免各入口各自实现导致口径漂移。
type ScheduleService struct {
	medications *MedicationService
	doseLogs    *DoseLogService
	settings    *SettingService
}

// NewScheduleService 构造 ScheduleService
func NewScheduleService(gdb *gorm.DB) *ScheduleService {
	return &ScheduleService{
		medications: NewMedicationService(gdb),
		doseLogs:    NewDoseLogService(gdb),
		settings:    NewSettingService(gdb),
	}
}

// Window 返回当前生效的给药窗口
func (s *ScheduleService) Window() schedule.DailyWindow {
	window, err := s.settings.Window()
	if err != nil {
		return schedule.DefaultWindow()
	}
	return window
}

// View 返回用户在 [start, end] 区间内的分类服药事件。
// now 在进入本方法前由调用方取一次，整个计算过程只用这一个时刻。
func (s *ScheduleService) View(userID uint, start, end, now time.Time) ([]schedule.ClassifiedOccurrence, error) {
	window := s.Window()

	medications, err := s.medications.ListActiveBetween(userID, start, end)
	if err != nil {
		return nil, err
	}

	occurrences, err := schedule.Generate(medications, start, end, window)
	if err != nil {
		return nil, err
	}

	// 查询区间放宽到整日边界，保证分钟级计划时刻全部覆盖
	logs, err := s.doseLogs.ListBetween(userID, DoseLogFilter{
		Start: schedule.DayStart(start),
		End:   schedule.DayStart(end).AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}

	return schedule.Classify(occurrences, logs, now), nil
}

// Adherence 返回用户在 [start, end] 区间内的依从性汇总。
// topN 非正时取系统设置中的默认条数。
func (s *ScheduleService) Adherence(userID uint, start, end, now time.Time, topN int) (schedule.AdherenceSummary, error) {
	if topN <= 0 {
		settings, err := s.settings.GetSettings()
		if err == nil {
			topN = settings.TopMissedLimit
		}
	}

	classified, err := s.View(userID, start, end, now)
	if err != nil {
		return schedule.AdherenceSummary{}, err
	}

	return schedule.Aggregate(classified, start, end, topN), nil
}
