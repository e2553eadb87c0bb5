package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/medtrack/internal/db"
	"github.com/medtrack/internal/schedule"
	"gorm.io/gorm"
)

var (
	// ErrMedicationNotFound 在指定药品不存在时返回
	ErrMedicationNotFound = errors.New("medication not found")
	// ErrMedicationForbidden 在药品不属于当前用户时返回，调用方不应重试
	ErrMedicationForbidden = errors.New("medication owned by another user")
	// ErrMedicationInvalidFrequency 当每日频次配置异常时返回
	ErrMedicationInvalidFrequency = errors.New("invalid medication frequency")
	// ErrMedicationInvalidDates 当有效期区间异常时返回
	ErrMedicationInvalidDates = errors.New("invalid medication date range")
)

// MedicationService 负责 Medication 数据的增删改查
// 所有操作显式接收 userID，所有权校验在服务层完成，不依赖任何全局会话状态

type MedicationService struct {
	db *gorm.DB
}

// MedicationFilter 描述列表过滤条件
// ActiveOn 非空时仅返回该日期处于有效期内的药品
type MedicationFilter struct {
	ActiveOn   *time.Time
	CategoryID uint
	Search     string
}

// MedicationInput 定义创建/更新药品时可配置字段
type MedicationInput struct {
	Name            string
	Dose            string
	FrequencyPerDay int
	StartDate       time.Time
	EndDate         *time.Time
	CategoryID      *uint
	Notes           string
}

// NewMedicationService 构造 MedicationService
func NewMedicationService(gdb *gorm.DB) *MedicationService {
	return &MedicationService{db: gdb}
}

// List 返回用户的药品集合，支持基本筛选
func (s *MedicationService) List(userID uint, filter MedicationFilter) ([]db.Medication, error) {
	var medications []db.Medication

	query := s.db.Model(&db.Medication{}).Where("user_id = ?", userID)

	if filter.ActiveOn != nil {
		day := schedule.DayStart(*filter.ActiveOn)
		query = query.Where("start_date <= ?", day).
			Where("end_date IS NULL OR end_date >= ?", day)
	}
	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.TrimSpace(filter.Search))
		query = query.Where("name LIKE ? OR dose LIKE ?", like, like)
	}

	if err := query.Order("name ASC").Order("id ASC").Find(&medications).Error; err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}

	return medications, nil
}

// ListActiveBetween 返回有效期与 [start, end] 存在交集的药品，供排期视图使用
func (s *MedicationService) ListActiveBetween(userID uint, start, end time.Time) ([]db.Medication, error) {
	var medications []db.Medication

	if err := s.db.Where("user_id = ?", userID).
		Where("start_date <= ?", schedule.DayStart(end)).
		Where("end_date IS NULL OR end_date >= ?", schedule.DayStart(start)).
		Order("id ASC").
		Find(&medications).Error; err != nil {
		return nil, fmt.Errorf("list active medications: %w", err)
	}

	return medications, nil
}

// Get 根据 ID 获取药品并校验归属
func (s *MedicationService) Get(userID, id uint) (*db.Medication, error) {
	var medication db.Medication
	if err := s.db.First(&medication, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("get medication: %w", err)
	}

	if medication.UserID != userID {
		return nil, ErrMedicationForbidden
	}

	return &medication, nil
}

// Create 新建药品
func (s *MedicationService) Create(userID uint, input MedicationInput) (*db.Medication, error) {
	if err := validateMedicationInput(input); err != nil {
		return nil, err
	}

	medication := db.Medication{
		UserID:          userID,
		Name:            strings.TrimSpace(input.Name),
		Dose:            strings.TrimSpace(input.Dose),
		FrequencyPerDay: input.FrequencyPerDay,
		StartDate:       schedule.DayStart(input.StartDate),
		EndDate:         normalizeEndDate(input.EndDate),
		CategoryID:      input.CategoryID,
		Notes:           input.Notes,
	}

	if err := s.db.Create(&medication).Error; err != nil {
		return nil, fmt.Errorf("create medication: %w", err)
	}
	return &medication, nil
}

// Update 更新药品
func (s *MedicationService) Update(userID, id uint, input MedicationInput) (*db.Medication, error) {
	if err := validateMedicationInput(input); err != nil {
		return nil, err
	}

	existing, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Dose = strings.TrimSpace(input.Dose)
	existing.FrequencyPerDay = input.FrequencyPerDay
	existing.StartDate = schedule.DayStart(input.StartDate)
	existing.EndDate = normalizeEndDate(input.EndDate)
	existing.CategoryID = input.CategoryID
	existing.Notes = input.Notes

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update medication: %w", err)
	}
	return existing, nil
}

// Delete 删除药品及其服药记录
func (s *MedicationService) Delete(userID, id uint) error {
	if _, err := s.Get(userID, id); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("medication_id = ?", id).Delete(&db.DoseLog{}).Error; err != nil {
			return fmt.Errorf("delete dose logs: %w", err)
		}
		if err := tx.Delete(&db.Medication{}, id).Error; err != nil {
			return fmt.Errorf("delete medication: %w", err)
		}
		return nil
	})
}

func validateMedicationInput(input MedicationInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("medication name is required")
	}

	if input.FrequencyPerDay < 1 {
		return fmt.Errorf("%w: frequency must be positive", ErrMedicationInvalidFrequency)
	}

	if input.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrMedicationInvalidDates)
	}

	if input.EndDate != nil && schedule.DayStart(*input.EndDate).Before(schedule.DayStart(input.StartDate)) {
		return fmt.Errorf("%w: end date before start date", ErrMedicationInvalidDates)
	}

	return nil
}

func normalizeEndDate(end *time.Time) *time.Time {
	if end == nil {
		return nil
	}
	day := schedule.DayStart(*end)
	return &day
}
