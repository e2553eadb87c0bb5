package schedule

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"
)

// DefaultTopMissed 是漏服排行的默认条数
const DefaultTopMissed = 5

// DailyAdherence 表示某一天的依从性数据
type DailyAdherence struct {
	Day         time.Time
	TakenCount  int
	MissedCount int
	Percentage  float64
}

// MissedRank 描述漏服排行中的单个药品
type MissedRank struct {
	MedicationID   uint
	MedicationName string
	MissedCount    int
}

// AdherenceSummary 汇总一个时间窗口内的依从性统计，按需派生、从不落库
type AdherenceSummary struct {
	WindowStart       time.Time
	WindowEnd         time.Time
	TakenCount        int
	MissedCount       int
	OverallPercentage float64
	Daily             []DailyAdherence
	MostMissed        []MissedRank
}

// Aggregate 将分类结果归约为依从性统计。
// 只有 Taken/Missed 参与计算，Pending/Due（未来或宽限期内）不计入分母。
// 百分比四舍五入到两位小数；无有效事件的日期报 0% 而非 NaN，
// 无漏服的药品不进入排行。topN 非正时取默认值。
func Aggregate(classified []ClassifiedOccurrence, windowStart, windowEnd time.Time, topN int) AdherenceSummary {
	if topN <= 0 {
		topN = DefaultTopMissed
	}

	start := DayStart(windowStart)
	end := DayStart(windowEnd)

	summary := AdherenceSummary{WindowStart: start, WindowEnd: end}
	if end.Before(start) {
		return summary
	}

	type dayTally struct{ taken, missed int }
	type medTally struct {
		name   string
		missed int
	}

	days := make(map[int64]*dayTally)
	meds := make(map[uint]*medTally)

	for _, entry := range classified {
		if entry.Status != StatusTaken && entry.Status != StatusMissed {
			continue
		}

		day := DayStart(entry.ScheduledAt)
		if day.Before(start) || day.After(end) {
			continue
		}

		tally := days[day.Unix()]
		if tally == nil {
			tally = &dayTally{}
			days[day.Unix()] = tally
		}

		if entry.Status == StatusTaken {
			summary.TakenCount++
			tally.taken++
			continue
		}

		summary.MissedCount++
		tally.missed++

		med := meds[entry.MedicationID]
		if med == nil {
			med = &medTally{name: entry.MedicationName}
			meds[entry.MedicationID] = med
		}
		med.missed++
	}

	summary.OverallPercentage = percentage(summary.TakenCount, summary.MissedCount)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		entry := DailyAdherence{Day: day}
		if tally := days[day.Unix()]; tally != nil {
			entry.TakenCount = tally.taken
			entry.MissedCount = tally.missed
			entry.Percentage = percentage(tally.taken, tally.missed)
		}
		summary.Daily = append(summary.Daily, entry)
	}

	ranking := make([]MissedRank, 0, len(meds))
	for id, med := range meds {
		ranking = append(ranking, MissedRank{MedicationID: id, MedicationName: med.name, MissedCount: med.missed})
	}

	slices.SortFunc(ranking, func(a, b MissedRank) int {
		if diff := cmp.Compare(b.MissedCount, a.MissedCount); diff != 0 {
			return diff
		}
		if diff := cmp.Compare(strings.ToLower(a.MedicationName), strings.ToLower(b.MedicationName)); diff != 0 {
			return diff
		}
		return cmp.Compare(a.MedicationID, b.MedicationID)
	})

	if len(ranking) > topN {
		ranking = ranking[:topN]
	}
	summary.MostMissed = ranking

	return summary
}

func percentage(taken, missed int) float64 {
	total := taken + missed
	if total == 0 {
		return 0
	}
	return math.Round(float64(taken)/float64(total)*100*100) / 100
}
