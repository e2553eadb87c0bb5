package service

import (
	"errors"
	"strings"

	"github.com/medtrack/internal/db"
	"gorm.io/gorm"
)

var (
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryInUse    = errors.New("category is associated with medications")
	ErrCategoryNotFound = errors.New("category not found")
)

// CategoryService wraps category related operations.
type CategoryService struct {
	db *gorm.DB
}

// CategoryUsage 描述分类下的药品数量
type CategoryUsage struct {
	ID    uint
	Name  string
	Count int64
}

// NewCategoryService creates a CategoryService instance.
func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// List returns the user's categories with medication counts.
func (s *CategoryService) List(userID uint) ([]CategoryUsage, error) {
	var usages []CategoryUsage
	if err := s.db.
		Model(&db.Category{}).
		Select("categories.id, categories.name, COUNT(medications.id) AS count").
		Joins("LEFT JOIN medications ON medications.category_id = categories.id AND medications.deleted_at IS NULL").
		Where("categories.user_id = ?", userID).
		Group("categories.id").
		Order("categories.name asc").
		Order("categories.id asc").
		Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

// Create adds a category, rejecting duplicate names per user.
func (s *CategoryService) Create(userID uint, name string) (*db.Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, errors.New("category name is required")
	}

	var count int64
	if err := s.db.Model(&db.Category{}).
		Where("user_id = ? AND name = ?", userID, trimmed).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCategoryExists
	}

	category := db.Category{UserID: userID, Name: trimmed}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Delete removes a category unless medications still reference it.
func (s *CategoryService) Delete(userID, id uint) error {
	var category db.Category
	if err := s.db.Where("user_id = ?", userID).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	var inUse int64
	if err := s.db.Model(&db.Medication{}).Where("category_id = ?", id).Count(&inUse).Error; err != nil {
		return err
	}
	if inUse > 0 {
		return ErrCategoryInUse
	}

	return s.db.Delete(&category).Error
}
