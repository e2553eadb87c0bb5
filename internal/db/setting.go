package db

import "gorm.io/gorm"

// SystemSetting 存储后台可配置的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeyWindowStartHour 表示每日给药窗口的起始小时。
	SettingKeyWindowStartHour = "dose_window_start_hour"
	// SettingKeyWindowEndHour 表示每日给药窗口的结束小时。
	SettingKeyWindowEndHour = "dose_window_end_hour"
	// SettingKeyTopMissedLimit 表示漏服排行的默认条数。
	SettingKeyTopMissedLimit = "top_missed_limit"
)
