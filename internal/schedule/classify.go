package schedule

import (
	"time"

	"github.com/medtrack/internal/db"
)

// OnTimeGrace 是计划时刻之后仍算按时的宽限窗口。
// 分类与记录共用同一常量，保证"逾期"判定在所有入口一致。
const OnTimeGrace = 4 * time.Hour

// Status 表示一次服药事件的分类结果
type Status string

const (
	// StatusPending 计划时刻尚未到来
	StatusPending Status = "pending"
	// StatusDue 处于宽限窗口内，可记录为按时
	StatusDue Status = "due"
	// StatusMissed 超出宽限窗口仍无记录，或已显式记录漏服
	StatusMissed Status = "missed"
	// StatusTaken 已记录服用（无论是否按时）
	StatusTaken Status = "taken"
)

// ClassifiedOccurrence 将服药事件与其状态绑定；已有记录时回填 Log
type ClassifiedOccurrence struct {
	Occurrence
	Status Status
	Log    *db.DoseLog
}

type logKey struct {
	medicationID uint
	scheduledAt  int64
}

func keyFor(medicationID uint, scheduledAt time.Time) logKey {
	return logKey{medicationID: medicationID, scheduledAt: scheduledAt.Truncate(time.Minute).Unix()}
}

// Classify 为每个服药事件计算状态。
// now 由调用方取一次后传入，整个分类过程不再读取时钟，
// 避免同一轮计算中状态翻转。
// 记录匹配按 (药品 ID, 计划时刻) 精确到分钟；显式漏服记录直接判定为 Missed，
// 且优先于宽限窗口的时间判定。
func Classify(occurrences []Occurrence, logs []db.DoseLog, now time.Time) []ClassifiedOccurrence {
	byKey := make(map[logKey]*db.DoseLog, len(logs))
	for i := range logs {
		byKey[keyFor(logs[i].MedicationID, logs[i].ScheduledTime)] = &logs[i]
	}

	classified := make([]ClassifiedOccurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		entry := ClassifiedOccurrence{Occurrence: occ}

		if log, ok := byKey[keyFor(occ.MedicationID, occ.ScheduledAt)]; ok {
			entry.Log = log
			if log.Outcome == db.DoseOutcomeTaken {
				entry.Status = StatusTaken
			} else {
				entry.Status = StatusMissed
			}
		} else {
			switch {
			case now.Before(occ.ScheduledAt):
				entry.Status = StatusPending
			case now.After(occ.ScheduledAt.Add(OnTimeGrace)):
				entry.Status = StatusMissed
			default:
				entry.Status = StatusDue
			}
		}

		classified = append(classified, entry)
	}

	return classified
}

// OnTime 判断实际服药时刻是否落在宽限窗口内
func OnTime(scheduledAt, actualAt time.Time) bool {
	return !actualAt.After(scheduledAt.Add(OnTimeGrace))
}
