package handler

import (
	"github.com/medtrack/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	medications *service.MedicationService
	categories  *service.CategoryService
	doseLogs    *service.DoseLogService
	schedules   *service.ScheduleService
	settings    *service.SettingService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB) *API {
	return &API{
		db:          db,
		medications: service.NewMedicationService(db),
		categories:  service.NewCategoryService(db),
		doseLogs:    service.NewDoseLogService(db),
		schedules:   service.NewScheduleService(db),
		settings:    service.NewSettingService(db),
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}
