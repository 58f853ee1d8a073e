package service

import (
	"math"
	"sort"
	"time"

	"github.com/bitfantasy/linelog/internal/model/entity"
)

// TimeWindow 统计时间窗口
type TimeWindow string

const (
	WindowHour  TimeWindow = "hour"
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowAll   TimeWindow = "all"
)

// ParseTimeWindow 解析时间窗口参数，空串按all处理
func ParseTimeWindow(s string) (TimeWindow, bool) {
	switch TimeWindow(s) {
	case WindowHour, WindowDay, WindowWeek, WindowMonth, WindowAll:
		return TimeWindow(s), true
	case "":
		return WindowAll, true
	}
	return WindowAll, false
}

func windowDuration(w TimeWindow) (time.Duration, bool) {
	switch w {
	case WindowHour:
		return time.Hour, true
	case WindowDay:
		return 24 * time.Hour, true
	case WindowWeek:
		return 7 * 24 * time.Hour, true
	case WindowMonth:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// FilterByTimeWindow 保留记录时间落在[now-window, now]内的记录。
// window为all时原样返回；时间基准由调用方传入，测试可重放。
func FilterByTimeWindow(records []entity.Record, window TimeWindow, now time.Time) []entity.Record {
	d, ok := windowDuration(window)
	if !ok {
		return records
	}

	cutoff := now.Add(-d)
	filtered := make([]entity.Record, 0, len(records))
	for _, r := range records {
		if !r.RecordedAt.Before(cutoff) && !r.RecordedAt.After(now) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// QualitySummary 质检汇总指标
type QualitySummary struct {
	Total         int `json:"total"`
	Pass          int `json:"pass"`
	Fail          int `json:"fail"`
	PendingRework int `json:"pendingRework"`

	PassRate   float64 `json:"passRate"`
	DefectRate float64 `json:"defectRate"`
	ReworkRate float64 `json:"reworkRate"`

	ReworkedTotal     int     `json:"reworkedTotal"`
	ReworkedPass      int     `json:"reworkedPass"`
	ReworkedFail      int     `json:"reworkedFail"`
	ReworkSuccessRate float64 `json:"reworkSuccessRate"`

	Operators int `json:"operators"`
}

// Summarize 计算质检汇总指标：
// passRate = pass/(pass+fail)，defectRate = (fail+pending)/total，
// reworkSuccessRate 只在wasReworked子集内计算。
func Summarize(records []entity.Record) QualitySummary {
	var s QualitySummary
	operators := make(map[string]bool)

	for _, r := range records {
		if r.Category != entity.CategoryQualityControl {
			continue
		}
		s.Total++
		if r.Operator != "" {
			operators[r.Operator] = true
		}
		switch r.Outcome {
		case entity.OutcomePass:
			s.Pass++
		case entity.OutcomeFail:
			s.Fail++
		case entity.OutcomePendingRework:
			s.PendingRework++
		}
		if r.WasReworked {
			s.ReworkedTotal++
			switch r.Outcome {
			case entity.OutcomePass:
				s.ReworkedPass++
			case entity.OutcomeFail:
				s.ReworkedFail++
			}
		}
	}

	s.Operators = len(operators)
	s.PassRate = percentage(s.Pass, s.Pass+s.Fail)
	s.DefectRate = percentage(s.Fail+s.PendingRework, s.Total)
	s.ReworkRate = percentage(s.PendingRework, s.Total)
	s.ReworkSuccessRate = percentage(s.ReworkedPass, s.ReworkedPass+s.ReworkedFail)
	return s
}

// DistributionEntry 分布统计项
type DistributionEntry struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// OutcomeDistribution 质检结论分布
func OutcomeDistribution(records []entity.Record) []DistributionEntry {
	counts := make(map[string]int)
	total := 0
	for _, r := range records {
		if r.Category != entity.CategoryQualityControl {
			continue
		}
		total++
		outcome := r.Outcome
		if outcome == "" {
			outcome = "unknown"
		}
		counts[outcome]++
	}
	return toDistribution(counts, total)
}

// CauseDistribution 失败原因分布（数组字段按出现次数计数）
func CauseDistribution(records []entity.Record) []DistributionEntry {
	counts := make(map[string]int)
	total := 0
	for _, r := range records {
		if r.Category != entity.CategoryQualityControl {
			continue
		}
		total++
		for _, cause := range r.FailureCauses {
			counts[cause]++
		}
	}
	return toDistribution(counts, total)
}

// OutputDistribution 受影响输出分布
func OutputDistribution(records []entity.Record) []DistributionEntry {
	counts := make(map[string]int)
	total := 0
	for _, r := range records {
		if r.Category != entity.CategoryQualityControl {
			continue
		}
		total++
		for _, output := range r.AffectedOutputs {
			counts[output]++
		}
	}
	return toDistribution(counts, total)
}

func toDistribution(counts map[string]int, total int) []DistributionEntry {
	entries := make([]DistributionEntry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, DistributionEntry{
			Name:       name,
			Count:      count,
			Percentage: percentage(count, total),
		})
	}
	// 按次数倒序，同次数按名称保证稳定输出
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// RateBin 固定宽度分箱的缺陷率
type RateBin struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Total      int     `json:"totalSamples"`
	Defects    int     `json:"defects"`
	DefectRate float64 `json:"defectRate"`
}

// BinWidths 各测量字段的分箱宽度
var BinWidths = map[string]float64{
	entity.MeasurementTemperature:   2,
	entity.MeasurementSpeed:         5,
	entity.MeasurementSqueegeeSpeed: 5,
	entity.MeasurementPrintPressure: 10,
	entity.MeasurementInkViscosity:  5,
	entity.MeasurementHumidity:      5,
}

// BinnedDefectRates 对指定测量字段做固定宽度分箱并计算每箱缺陷率。
// 样本数不足2的箱丢弃（样本不足抑制，不算错误）。
func BinnedDefectRates(records []entity.Record, field string, width float64) []RateBin {
	if width <= 0 {
		return nil
	}

	type bucket struct {
		total   int
		defects int
	}
	buckets := make(map[float64]*bucket)

	for _, r := range records {
		m := r.MeasurementByName(field)
		if m == nil {
			continue
		}
		start := math.Floor(m.Value/width) * width
		b, ok := buckets[start]
		if !ok {
			b = &bucket{}
			buckets[start] = b
		}
		b.total++
		if r.Outcome == entity.OutcomeFail || r.Outcome == entity.OutcomePendingRework {
			b.defects++
		}
	}

	bins := make([]RateBin, 0, len(buckets))
	for start, b := range buckets {
		if b.total < 2 {
			continue
		}
		bins = append(bins, RateBin{
			Start:      start,
			End:        start + width,
			Total:      b.total,
			Defects:    b.defects,
			DefectRate: percentage(b.defects, b.total),
		})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Start < bins[j].Start })
	return bins
}

// percentage 百分比，保留一位小数；分母为0返回0
func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
