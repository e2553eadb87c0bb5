package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medtrack/internal/db"
	"github.com/medtrack/internal/schedule"
	"github.com/medtrack/internal/service"
)

const (
	defaultScheduleView = "daily"

	deviceCookieName   = "mt_device_id"
	deviceCookieMaxAge = 365 * 24 * 60 * 60
)

// GetSchedule 返回日期区间内的分类服药事件。
// 提醒页与打卡页共用本接口，不各自计算状态。
func (a *API) GetSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	start, end, ok := resolveScheduleRange(c)
	if !ok {
		return
	}

	now := time.Now().In(time.Local)
	classified, err := a.schedules.View(userID, start, end, now)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	items := make([]gin.H, 0, len(classified))
	for _, entry := range classified {
		items = append(items, classifiedToPayload(entry))
	}

	c.JSON(http.StatusOK, gin.H{
		"range":        gin.H{"start": start.Format(dateFormat), "end": end.Format(dateFormat)},
		"generated_at": now.Format(time.RFC3339),
		"occurrences":  items,
	})
}

// MarkDoseTaken 记录一次服药
func (a *API) MarkDoseTaken(c *gin.Context) {
	a.recordDose(c, db.DoseOutcomeTaken)
}

// MarkDoseMissed 显式记录一次漏服，可在宽限期结束前提交
func (a *API) MarkDoseMissed(c *gin.Context) {
	a.recordDose(c, db.DoseOutcomeMissed)
}

func (a *API) recordDose(c *gin.Context, outcome string) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	medicationID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的药品ID")
		return
	}

	var payload struct {
		ScheduledTime string `json:"scheduled_time"` // RFC3339
		ActualTime    string `json:"actual_time"`    // RFC3339，可选，默认当前时刻
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, strings.TrimSpace(payload.ScheduledTime))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的计划时刻")
		return
	}

	// 漏服记录的时间戳固定取提交时刻，不接受客户端补报的时间
	actualAt := time.Now().In(time.Local)
	if outcome == db.DoseOutcomeTaken {
		if trimmed := strings.TrimSpace(payload.ActualTime); trimmed != "" {
			parsed, err := time.Parse(time.RFC3339, trimmed)
			if err != nil {
				respondError(c, http.StatusBadRequest, "无效的实际时刻")
				return
			}
			actualAt = parsed
		}
	}

	logEntry, err := a.doseLogs.Record(service.DoseRecordInput{
		UserID:        userID,
		MedicationID:  medicationID,
		ScheduledTime: scheduledAt,
		Outcome:       outcome,
		ActualTime:    actualAt,
		RecordedBy:    a.ensureDeviceID(c),
		Window:        a.schedules.Window(),
	})

	if errors.Is(err, service.ErrDuplicateDoseLog) {
		// 重复提交多半来自双击或多端重试，对用户表现为幂等成功
		c.JSON(http.StatusOK, gin.H{"already_logged": true, "log": doseLogToPayload(*logEntry)})
		return
	}
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"already_logged": false, "log": doseLogToPayload(*logEntry)})
}

// GetAdherence 返回日期区间内的依从性汇总
func (a *API) GetAdherence(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	today := schedule.DayStart(time.Now().In(time.Local))

	start, ok := parseDateQuery(c.Query("start"), today.AddDate(0, 0, -6))
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return
	}
	end, ok := parseDateQuery(c.Query("end"), today)
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的结束日期")
		return
	}

	topN := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(c, http.StatusBadRequest, "无效的排行条数")
			return
		}
		topN = parsed
	}

	now := time.Now().In(time.Local)
	summary, err := a.schedules.Adherence(userID, start, end, now, topN)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	c.JSON(http.StatusOK, adherenceToPayload(summary))
}

// ensureDeviceID 为当前客户端维护一个设备标识 Cookie，
// 多端并发提交时用于定位是哪台设备赢得了唯一约束
func (a *API) ensureDeviceID(c *gin.Context) string {
	if existing, err := c.Cookie(deviceCookieName); err == nil && existing != "" {
		return existing
	}

	deviceID := uuid.NewString()
	c.SetCookie(deviceCookieName, deviceID, deviceCookieMaxAge, "/", "", false, true)
	return deviceID
}

func resolveScheduleRange(c *gin.Context) (time.Time, time.Time, bool) {
	today := schedule.DayStart(time.Now().In(time.Local))

	start, ok := parseDateQuery(c.Query("start"), today)
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return time.Time{}, time.Time{}, false
	}
	start = schedule.DayStart(start)

	if raw := strings.TrimSpace(c.Query("end")); raw != "" {
		end, ok := parseDateQuery(raw, today)
		if !ok || end.Before(start) {
			respondError(c, http.StatusBadRequest, "无效的结束日期")
			return time.Time{}, time.Time{}, false
		}
		return start, schedule.DayStart(end), true
	}

	switch strings.ToLower(c.DefaultQuery("view", defaultScheduleView)) {
	case "weekly":
		weekday := int(start.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = start.AddDate(0, 0, -weekday+1)
		return start, start.AddDate(0, 0, 6), true
	default:
		return start, start, true
	}
}

func classifiedToPayload(entry schedule.ClassifiedOccurrence) gin.H {
	item := gin.H{
		"medication_id":   entry.MedicationID,
		"medication_name": entry.MedicationName,
		"dose_index":      entry.DoseIndex,
		"scheduled_at":    entry.ScheduledAt.Format(time.RFC3339),
		"status":          string(entry.Status),
	}
	if entry.Log != nil {
		item["log"] = doseLogToPayload(*entry.Log)
	}
	return item
}

func doseLogToPayload(log db.DoseLog) gin.H {
	return gin.H{
		"id":             log.ID,
		"medication_id":  log.MedicationID,
		"scheduled_time": log.ScheduledTime.Format(time.RFC3339),
		"actual_time":    log.ActualTime.Format(time.RFC3339),
		"outcome":        log.Outcome,
		"taken_on_time":  log.TakenOnTime,
		"reward_earned":  log.RewardEarned,
	}
}

func adherenceToPayload(summary schedule.AdherenceSummary) gin.H {
	daily := make([]gin.H, 0, len(summary.Daily))
	for _, day := range summary.Daily {
		daily = append(daily, gin.H{
			"day":          day.Day.Format(dateFormat),
			"taken_count":  day.TakenCount,
			"missed_count": day.MissedCount,
			"percentage":   day.Percentage,
		})
	}

	mostMissed := make([]gin.H, 0, len(summary.MostMissed))
	for _, rank := range summary.MostMissed {
		mostMissed = append(mostMissed, gin.H{
			"medication_id":   rank.MedicationID,
			"medication_name": rank.MedicationName,
			"missed_count":    rank.MissedCount,
		})
	}

	return gin.H{
		"range":              gin.H{"start": summary.WindowStart.Format(dateFormat), "end": summary.WindowEnd.Format(dateFormat)},
		"taken_count":        summary.TakenCount,
		"missed_count":       summary.MissedCount,
		"overall_percentage": summary.OverallPercentage,
		"daily":              daily,
		"most_missed":        mostMissed,
	}
}

func handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMedicationNotFound):
		respondError(c, http.StatusNotFound, "药品不存在")
	case errors.Is(err, service.ErrMedicationForbidden):
		respondError(c, http.StatusForbidden, "无权操作该药品")
	case errors.Is(err, service.ErrUnknownOccurrence):
		respondError(c, http.StatusUnprocessableEntity, "计划时刻不在该药品的服药计划内")
	case errors.Is(err, service.ErrInvalidDoseOutcome):
		respondError(c, http.StatusBadRequest, "无效的记录结果")
	case errors.Is(err, schedule.ErrInvalidRange), errors.Is(err, schedule.ErrInvalidFrequency), errors.Is(err, schedule.ErrInvalidWindow):
		respondError(c, http.StatusBadRequest, "无效的查询区间")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
