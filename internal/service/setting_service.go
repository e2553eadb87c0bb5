package service

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/medtrack/internal/db"
	"github.com/medtrack/internal/schedule"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidSettings 表示提交的系统设置取值非法。
var ErrInvalidSettings = errors.New("invalid dosing settings")

// DosingSettings 描述后台可配置的排期参数。
type DosingSettings struct {
	WindowStartHour int
	WindowEndHour   int
	TopMissedLimit  int
}

// SettingService 提供系统设置的读取与更新能力。
type SettingService struct {
	db *gorm.DB
}

// NewSettingService 构造 SettingService。
func NewSettingService(gdb *gorm.DB) *SettingService {
	return &SettingService{db: gdb}
}

var settingKeys = []string{
	db.SettingKeyWindowStartHour,
	db.SettingKeyWindowEndHour,
	db.SettingKeyTopMissedLimit,
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SettingService) GetSettings() (DosingSettings, error) {
	settings := DosingSettings{
		WindowStartHour: schedule.DefaultWindow().StartHour,
		WindowEndHour:   schedule.DefaultWindow().EndHour,
		TopMissedLimit:  schedule.DefaultTopMissed,
	}

	var rows []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&rows).Error; err != nil {
		return settings, fmt.Errorf("load settings: %w", err)
	}

	for _, row := range rows {
		value, err := strconv.Atoi(row.Value)
		if err != nil {
			continue
		}
		switch row.Key {
		case db.SettingKeyWindowStartHour:
			settings.WindowStartHour = value
		case db.SettingKeyWindowEndHour:
			settings.WindowEndHour = value
		case db.SettingKeyTopMissedLimit:
			settings.TopMissedLimit = value
		}
	}

	return settings, nil
}

// UpdateSettings 校验并保存系统设置。
func (s *SettingService) UpdateSettings(input DosingSettings) error {
	window := schedule.DailyWindow{StartHour: input.WindowStartHour, EndHour: input.WindowEndHour}
	if !window.Valid() {
		return fmt.Errorf("%w: window %d-%d", ErrInvalidSettings, input.WindowStartHour, input.WindowEndHour)
	}
	if input.TopMissedLimit < 1 {
		return fmt.Errorf("%w: top missed limit must be positive", ErrInvalidSettings)
	}

	values := map[string]int{
		db.SettingKeyWindowStartHour: input.WindowStartHour,
		db.SettingKeyWindowEndHour:   input.WindowEndHour,
		db.SettingKeyTopMissedLimit:  input.TopMissedLimit,
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			row := db.SystemSetting{Key: key, Value: strconv.Itoa(value)}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("save setting %s: %w", key, err)
			}
		}
		return nil
	})
}

// Window 返回当前配置的给药窗口。
func (s *SettingService) Window() (schedule.DailyWindow, error) {
	settings, err := s.GetSettings()
	if err != nil {
		return schedule.DefaultWindow(), err
	}

	window := schedule.DailyWindow{StartHour: settings.WindowStartHour, EndHour: settings.WindowEndHour}
	if !window.Valid() {
		return schedule.DefaultWindow(), nil
	}
	return window, nil
}
