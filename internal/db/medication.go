package db

import (
	"time"

	"gorm.io/gorm"
)

// Category 用于给药品分组，仅作筛选/统计用途
type Category struct {
	gorm.Model
	UserID uint   `gorm:"index"`
	Name   string `gorm:"size:100;not null"`
}

// Medication 定义了药品模型
// FrequencyPerDay 表示每日服药次数，必须为正整数
// StartDate/EndDate 为自然日（零点时刻），EndDate 含当日；过期后不再生成服药计划，但记录保留
// Notes 为 Markdown 自由文本，展示时渲染为安全 HTML
type Medication struct {
	gorm.Model
	UserID          uint   `gorm:"index;not null"`
	Name            string `gorm:"size:200;not null"`
	Dose            string `gorm:"size:200"`
	FrequencyPerDay int    `gorm:"not null"`
	StartDate       time.Time
	EndDate         *time.Time
	CategoryID      *uint
	Category        *Category `gorm:"constraint:OnDelete:SET NULL"`
	Notes           string    `gorm:"type:text"`
}

// DoseLog 记录一次服药计划的最终结果
// MedicationID + ScheduledTime 采用唯一索引，保证同一计划至多记录一次
// Outcome 为 taken/missed；RecordedBy 标记提交记录的设备
type DoseLog struct {
	gorm.Model
	UserID        uint       `gorm:"index"`
	MedicationID  uint       `gorm:"index;index:idx_dose_log_unique,unique"`
	Medication    Medication `gorm:"constraint:OnDelete:CASCADE"`
	ScheduledTime time.Time  `gorm:"index:idx_dose_log_unique,unique"`
	ActualTime    time.Time
	Outcome       string `gorm:"size:16;not null"`
	TakenOnTime   bool
	RewardEarned  bool
	RecordedBy    string `gorm:"size:64"`
}

// DoseLog 结果枚举
const (
	DoseOutcomeTaken  = "taken"
	DoseOutcomeMissed = "missed"
)

// TableName 重写确保唯一索引作用到 medication_id + scheduled_time
func (DoseLog) TableName() string {
	return "dose_logs"
}
