package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medtrack/internal/service"
)

// GetSettings 返回当前排期设置
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.settings.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "读取设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": gin.H{
		"window_start_hour": settings.WindowStartHour,
		"window_end_hour":   settings.WindowEndHour,
		"top_missed_limit":  settings.TopMissedLimit,
	}})
}

// UpdateSettings 保存排期设置
func (a *API) UpdateSettings(c *gin.Context) {
	var payload struct {
		WindowStartHour int `json:"window_start_hour"`
		WindowEndHour   int `json:"window_end_hour"`
		TopMissedLimit  int `json:"top_missed_limit"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	input := service.DosingSettings{
		WindowStartHour: payload.WindowStartHour,
		WindowEndHour:   payload.WindowEndHour,
		TopMissedLimit:  payload.TopMissedLimit,
	}

	if err := a.settings.UpdateSettings(input); err != nil {
		if errors.Is(err, service.ErrInvalidSettings) {
			respondError(c, http.StatusBadRequest, "设置取值无效")
			return
		}
		respondError(c, http.StatusInternalServerError, "保存设置失败")
		return
	}

	a.GetSettings(c)
}
