package service

import (
	"context"
	"sort"

	"github.com/macrolog/internal/nutrition"
)

// DayRollup 某一天的营养汇总
type DayRollup struct {
	Date       string           `json:"date"`
	Totals     nutrition.Totals `json:"totals"`
	EntryCount int              `json:"entryCount"`
}

// WeightSample 按展示单位换算后的体重点
type WeightSample struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	Unit   string  `json:"unit"`
}

// ProgressService 汇总历史日志与体重变化
type ProgressService struct {
	ledger   *LedgerService
	profiles *ProfileService
}

// NewProgressService 构造 ProgressService
func NewProgressService(ledger *LedgerService, profiles *ProfileService) *ProgressService {
	return &ProgressService{ledger: ledger, profiles: profiles}
}

// History 逐日汇总日志，按日期升序。days>0 时只保留截至今天的最近 days 个自然日，
// 没有记录的日期不会补零；被清空的当天仍以 entryCount=0 出现。
func (s *ProgressService) History(ctx context.Context, days int) ([]DayRollup, error) {
	logs, err := s.ledger.Days(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := ""
	if days > 0 {
		cutoff = s.ledger.now().AddDate(0, 0, -(days - 1)).Format(nutrition.DateLayout)
	}

	rollups := make([]DayRollup, 0, len(logs))
	for date, day := range logs {
		if date < cutoff {
			continue
		}
		rollups = append(rollups, DayRollup{
			Date:       date,
			Totals:     nutrition.ComputeTotals(day),
			EntryCount: len(day),
		})
	}
	sort.Slice(rollups, func(i, j int) bool { return rollups[i].Date < rollups[j].Date })
	return rollups, nil
}

// WeightSeries 返回体重历史，未注册时为空
func (s *ProgressService) WeightSeries(ctx context.Context) ([]WeightSample, error) {
	profile, ok, err := s.profiles.Load(ctx)
	if err != nil {
		return nil, err
	}
	samples := make([]WeightSample, 0)
	if !ok {
		return samples, nil
	}

	units := profile.Units()
	label := weightUnitLabel(units)
	for _, point := range profile.WeightHistory {
		samples = append(samples, WeightSample{
			Date:   point.Date,
			Weight: nutrition.DisplayWeight(point.WeightKg, units),
			Unit:   label,
		})
	}
	return samples, nil
}
