// Package domain 定义统计周期与币种的解析规则。
package domain

import (
	"errors"
	"fmt"
	"time"
)

// PeriodKind 定义周期关键字
type PeriodKind string

const (
	PeriodWeek    PeriodKind = "week"
	PeriodMonth   PeriodKind = "month"
	PeriodQuarter PeriodKind = "quarter"
	PeriodYear    PeriodKind = "year"
)

// DefaultPeriod 为未指定周期时的缺省值
const DefaultPeriod = PeriodMonth

// ErrInvalidPeriod 表示周期关键字非法
var ErrInvalidPeriod = errors.New("invalid period: must be one of week, month, quarter, year")

// ParsePeriodKind 校验并解析周期关键字；空串返回缺省值
func ParsePeriodKind(s string) (PeriodKind, error) {
	if s == "" {
		return DefaultPeriod, nil
	}
	switch PeriodKind(s) {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return PeriodKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// Period 表示左闭右开的日期区间 [Start, End)
type Period struct {
	Kind  PeriodKind `json:"type"`
	Start time.Time  `json:"start_date"`
	End   time.Time  `json:"end_date"`
}

// ResolvePeriod 将周期关键字和当前时刻解析为具体区间
// 规则：
//   - week:    start = now - 7天
//   - month:   start = 当月1日
//   - quarter: start = 所在季度首月1日（月索引整除3再乘3）
//   - year:    start = 当年1月1日
//
// end 恒为 now
func ResolvePeriod(kind PeriodKind, now time.Time) (Period, error) {
	var start time.Time
	switch kind {
	case PeriodWeek:
		start = now.AddDate(0, 0, -7)
	case PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case PeriodQuarter:
		// time.Month 从1开始，先转成0基索引再做整除
		quarterStart := ((int(now.Month()) - 1) / 3) * 3
		start = time.Date(now.Year(), time.Month(quarterStart+1), 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, kind)
	}
	return Period{Kind: kind, Start: start, End: now}, nil
}

// Previous 返回紧邻的等长前序区间：start' = start - (end-start)，end' = start
// 注意这是滚动等长窗口而非日历对齐的上一周期（例如"月"的前序区间是1日之前
// 的等长天数，不是上个日历月）。增长率对比依赖这一口径，改动会改变已上报数字
func (p Period) Previous() Period {
	length := p.End.Sub(p.Start)
	return Period{
		Kind:  p.Kind,
		Start: p.Start.Add(-length),
		End:   p.Start,
	}
}

// Currency 定义币种代码
type Currency string

const (
	CurrencyGBP Currency = "GBP"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// ErrInvalidCurrency 表示币种代码非法
var ErrInvalidCurrency = errors.New("invalid currency: must be one of GBP, USD, EUR")

// ParseCurrency 校验并解析币种；空串返回fallback（用户偏好币种）
// 币种是硬过滤条件而非汇率换算：聚合计算绝不跨币种求和
func ParseCurrency(s string, fallback Currency) (Currency, error) {
	if s == "" {
		return fallback, nil
	}
	switch Currency(s) {
	case CurrencyGBP, CurrencyUSD, CurrencyEUR:
		return Currency(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
}

// Symbol 返回币种符号，用于展示格式化
func (c Currency) Symbol() string {
	switch c {
	case CurrencyGBP:
		return "£"
	case CurrencyUSD:
		return "$"
	case CurrencyEUR:
		return "€"
	default:
		return string(c)
	}
}
