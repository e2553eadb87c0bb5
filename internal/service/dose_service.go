package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/medtrack/internal/db"
	"github.com/medtrack/internal/schedule"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrDuplicateDoseLog 表示该计划时刻已存在记录；唯一索引在数据层保证至多一条
	ErrDuplicateDoseLog = errors.New("dose log already recorded")
	// ErrUnknownOccurrence 表示计划时刻不属于该药品当日的任何服药事件
	ErrUnknownOccurrence = errors.New("scheduled time matches no dose occurrence")
	// ErrInvalidDoseOutcome 表示结果取值非法
	ErrInvalidDoseOutcome = errors.New("invalid dose outcome")
)

// RewardPolicy 将服药结果映射为是否获得奖励。
// 默认策略为"按时 ⇒ 奖励"；显式漏服永远不获奖励。
type RewardPolicy func(outcome string, takenOnTime bool) bool

func defaultRewardPolicy(outcome string, takenOnTime bool) bool {
	return outcome == db.DoseOutcomeTaken && takenOnTime
}

// DoseLogService 负责服药记录的写入与查询
type DoseLogService struct {
	db     *gorm.DB
	reward RewardPolicy
}

// DoseRecordInput 定义记录一次服药结果的输入对象
// ActualTime：taken 时为实际服药时刻，missed 时为用户点击记录的时刻
type DoseRecordInput struct {
	UserID        uint
	MedicationID  uint
	ScheduledTime time.Time
	Outcome       string
	ActualTime    time.Time
	RecordedBy    string
	Window        schedule.DailyWindow
}

// DoseLogFilter 指定查询区间
type DoseLogFilter struct {
	MedicationIDs []uint
	Start         time.Time
	End           time.Time
}

// NewDoseLogService 构造 DoseLogService
func NewDoseLogService(gdb *gorm.DB) *DoseLogService {
	return &DoseLogService{db: gdb, reward: defaultRewardPolicy}
}

// WithRewardPolicy 允许在测试或特定场景下替换奖励策略。
func (s *DoseLogService) WithRewardPolicy(policy RewardPolicy) *DoseLogService {
	if policy == nil {
		return s
	}
	s.reward = policy
	return s
}

// Record 为一次服药事件写入最终结果，保证至多一条。
// 同一 (药品, 计划时刻) 的并发写入只有一个成功，其余返回 ErrDuplicateDoseLog
// 并附带已存在的记录，调用方可按幂等成功处理。
func (s *DoseLogService) Record(input DoseRecordInput) (*db.DoseLog, error) {
	outcome := strings.TrimSpace(strings.ToLower(input.Outcome))
	if outcome != db.DoseOutcomeTaken && outcome != db.DoseOutcomeMissed {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDoseOutcome, input.Outcome)
	}

	var medication db.Medication
	if err := s.db.First(&medication, input.MedicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("load medication: %w", err)
	}
	if medication.UserID != input.UserID {
		return nil, ErrMedicationForbidden
	}

	scheduledAt := input.ScheduledTime.Truncate(time.Minute)
	if !isKnownOccurrence(medication, scheduledAt, input.Window) {
		return nil, ErrUnknownOccurrence
	}

	takenOnTime := outcome == db.DoseOutcomeTaken && schedule.OnTime(scheduledAt, input.ActualTime)

	record := db.DoseLog{
		UserID:        input.UserID,
		MedicationID:  medication.ID,
		ScheduledTime: scheduledAt,
		ActualTime:    input.ActualTime,
		Outcome:       outcome,
		TakenOnTime:   takenOnTime,
		RewardEarned:  s.reward(outcome, takenOnTime),
		RecordedBy:    strings.TrimSpace(input.RecordedBy),
	}

	insert := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "medication_id"}, {Name: "scheduled_time"}},
		DoNothing: true,
	}).Create(&record)
	if insert.Error != nil {
		return nil, fmt.Errorf("insert dose log: %w", insert.Error)
	}

	if insert.RowsAffected == 0 {
		var existing db.DoseLog
		if err := s.db.Where("medication_id = ? AND scheduled_time = ?", medication.ID, scheduledAt).
			First(&existing).Error; err != nil {
			return nil, fmt.Errorf("reload dose log: %w", err)
		}
		return &existing, ErrDuplicateDoseLog
	}

	return &record, nil
}

// ListBetween 返回用户在指定区间内的服药记录
func (s *DoseLogService) ListBetween(userID uint, filter DoseLogFilter) ([]db.DoseLog, error) {
	var logs []db.DoseLog

	query := s.db.Where("user_id = ?", userID).
		Where("scheduled_time BETWEEN ? AND ?", filter.Start, filter.End)

	if len(filter.MedicationIDs) > 0 {
		query = query.Where("medication_id IN ?", filter.MedicationIDs)
	}

	if err := query.Order("scheduled_time ASC").Order("medication_id ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list dose logs: %w", err)
	}

	return logs, nil
}

// isKnownOccurrence 以当日重新生成的计划校验记录目标，防止日志挂到不存在的事件上
func isKnownOccurrence(medication db.Medication, scheduledAt time.Time, window schedule.DailyWindow) bool {
	if !window.Valid() {
		window = schedule.DefaultWindow()
	}

	day := schedule.DayStart(scheduledAt)
	if !dayWithinMedication(medication, day) {
		return false
	}

	for _, occ := range schedule.DoseTimesForDay(medication, day, window) {
		if occ.ScheduledAt.Equal(scheduledAt) {
			return true
		}
	}
	return false
}

func dayWithinMedication(medication db.Medication, day time.Time) bool {
	if day.Before(schedule.DayStart(medication.StartDate)) {
		return false
	}
	if medication.EndDate != nil && day.After(schedule.DayStart(*medication.EndDate)) {
		return false
	}
	return true
}
