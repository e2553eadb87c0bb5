package handler

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medtrack/internal/db"
	"github.com/medtrack/internal/service"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

type medicationPayload struct {
	Name            string `json:"name"`
	Dose            string `json:"dose"`
	FrequencyPerDay int    `json:"frequency_per_day"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	CategoryID      *uint  `json:"category_id"`
	Notes           string `json:"notes"`
}

// ListMedications 返回药品列表 JSON
func (a *API) ListMedications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	filter := service.MedicationFilter{Search: c.Query("search")}

	if raw := c.Query("active_on"); raw != "" {
		day, ok := parseDateQuery(raw, time.Time{})
		if !ok {
			respondError(c, http.StatusBadRequest, "无效的查询日期")
			return
		}
		filter.ActiveOn = &day
	}
	if id, err := parseUintParamFromQuery(c, "category_id"); err == nil {
		filter.CategoryID = id
	}

	medications, err := a.medications.List(userID, filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取药品列表失败")
		return
	}

	items := make([]gin.H, 0, len(medications))
	for _, medication := range medications {
		items = append(items, medicationToPayload(medication))
	}

	c.JSON(http.StatusOK, gin.H{"medications": items})
}

// GetMedication 返回单个药品详情，附带渲染后的备注 HTML
func (a *API) GetMedication(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的药品ID")
		return
	}

	medication, err := a.medications.Get(userID, id)
	if err != nil {
		handleMedicationError(c, err)
		return
	}

	payload := medicationToPayload(*medication)
	payload["notes_html"] = renderNotesHTML(medication.Notes)
	c.JSON(http.StatusOK, gin.H{"medication": payload})
}

// CreateMedication 创建药品
func (a *API) CreateMedication(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	input, ok := parseMedicationInput(c)
	if !ok {
		return
	}

	medication, err := a.medications.Create(userID, input)
	if err != nil {
		handleMedicationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"medication": medicationToPayload(*medication)})
}

// UpdateMedication 更新药品
func (a *API) UpdateMedication(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的药品ID")
		return
	}

	input, ok := parseMedicationInput(c)
	if !ok {
		return
	}

	medication, err := a.medications.Update(userID, id, input)
	if err != nil {
		handleMedicationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"medication": medicationToPayload(*medication)})
}

// DeleteMedication 删除药品及其记录
func (a *API) DeleteMedication(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的药品ID")
		return
	}

	if err := a.medications.Delete(userID, id); err != nil {
		handleMedicationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func parseMedicationInput(c *gin.Context) (service.MedicationInput, bool) {
	var payload medicationPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return service.MedicationInput{}, false
	}

	startPtr, ok := parseOptionalDate(payload.StartDate)
	if !ok || startPtr == nil {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return service.MedicationInput{}, false
	}
	endPtr, ok := parseOptionalDate(payload.EndDate)
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的结束日期")
		return service.MedicationInput{}, false
	}

	return service.MedicationInput{
		Name:            payload.Name,
		Dose:            payload.Dose,
		FrequencyPerDay: payload.FrequencyPerDay,
		StartDate:       *startPtr,
		EndDate:         endPtr,
		CategoryID:      payload.CategoryID,
		Notes:           payload.Notes,
	}, true
}

func medicationToPayload(medication db.Medication) gin.H {
	item := gin.H{
		"id":                medication.ID,
		"name":              medication.Name,
		"dose":              medication.Dose,
		"frequency_per_day": medication.FrequencyPerDay,
		"start_date":        medication.StartDate.Format(dateFormat),
		"notes":             medication.Notes,
	}

	if medication.EndDate != nil {
		item["end_date"] = medication.EndDate.Format(dateFormat)
	}
	if medication.CategoryID != nil {
		item["category_id"] = *medication.CategoryID
	}

	return item
}

func renderNotesHTML(notes string) string {
	if notes == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(notes), &buf); err != nil {
		return ""
	}
	return sanitizer.Sanitize(buf.String())
}

func handleMedicationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMedicationNotFound):
		respondError(c, http.StatusNotFound, "药品不存在")
	case errors.Is(err, service.ErrMedicationForbidden):
		respondError(c, http.StatusForbidden, "无权操作该药品")
	case errors.Is(err, service.ErrMedicationInvalidFrequency):
		respondError(c, http.StatusBadRequest, "每日频次配置无效")
	case errors.Is(err, service.ErrMedicationInvalidDates):
		respondError(c, http.StatusBadRequest, "有效期配置无效")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
