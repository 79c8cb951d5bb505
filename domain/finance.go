package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReportPeriod string

const (
	PeriodThisMonth     ReportPeriod = "this-month"
	PeriodLastMonth     ReportPeriod = "last-month"
	PeriodLast3Months   ReportPeriod = "last-3-months"
	PeriodLast6Months   ReportPeriod = "last-6-months"
	PeriodThisYear      ReportPeriod = "this-year"
	PeriodSpecificMonth ReportPeriod = "specific-month"
	PeriodAllTime       ReportPeriod = "all-time"
)

func (p ReportPeriod) Valid() bool {
	switch p {
	case PeriodThisMonth, PeriodLastMonth, PeriodLast3Months, PeriodLast6Months,
		PeriodThisYear, PeriodSpecificMonth, PeriodAllTime:
		return true
	}
	return false
}

// ReportQuery selects the reporting window. Month and Year apply to specific-month only.
type ReportQuery struct {
	Period ReportPeriod
	Month  time.Month
	Year   int
}

// FinanceSummary aggregates income records. All-time figures ignore the period.
type FinanceSummary struct {
	Period            ReportPeriod    `json:"period"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	TotalPending      decimal.Decimal `json:"total_pending"`
	CompletedProjects int             `json:"completed_projects"`
	AvgProjectValue   decimal.Decimal `json:"avg_project_value"`
	PeriodRevenue     decimal.Decimal `json:"period_revenue"`
	PeriodPaid        decimal.Decimal `json:"period_paid"`
	PeriodProjects    int             `json:"period_projects"`
	ThisMonthRevenue  decimal.Decimal `json:"this_month_revenue"`
	LastMonthRevenue  decimal.Decimal `json:"last_month_revenue"`
	RevenueChange     decimal.Decimal `json:"revenue_change"`
	PaidProjects      int             `json:"paid_projects"`
	PartialProjects   int             `json:"partial_projects"`
	PendingProjects   int             `json:"pending_projects"`
	Records           []IncomeRecord  `json:"records"`
}

var hundred = decimal.NewFromInt(100)

// InPeriod reports whether at falls inside the query window. now must already be
// in the reporting location.
func (q ReportQuery) InPeriod(at, now time.Time) bool {
	at = at.In(now.Location())
	switch q.Period {
	case PeriodThisMonth:
		return sameMonth(at, now.Year(), now.Month())
	case PeriodLastMonth:
		last := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		return sameMonth(at, last.Year(), last.Month())
	case PeriodLast3Months:
		return !at.Before(now.AddDate(0, -3, 0)) && !at.After(now)
	case PeriodLast6Months:
		return !at.Before(now.AddDate(0, -6, 0)) && !at.After(now)
	case PeriodThisYear:
		return at.Year() == now.Year()
	case PeriodSpecificMonth:
		return sameMonth(at, q.Year, q.Month)
	default:
		return true
	}
}

// Summarize computes the dashboard figures for records as of now.
func Summarize(records []IncomeRecord, q ReportQuery, now time.Time) (FinanceSummary, error) {
	if q.Period == "" {
		q.Period = PeriodThisMonth
	}
	if !q.Period.Valid() {
		return FinanceSummary{}, ErrReportPeriod
	}
	if q.Period == PeriodSpecificMonth && (q.Month < time.January || q.Month > time.December || q.Year == 0) {
		return FinanceSummary{}, ErrReportPeriod
	}

	s := FinanceSummary{Period: q.Period, Records: []IncomeRecord{}}
	thisMonth := ReportQuery{Period: PeriodThisMonth}
	lastMonth := ReportQuery{Period: PeriodLastMonth}

	for _, r := range records {
		at := r.RecordedAt()
		s.TotalRevenue = s.TotalRevenue.Add(r.ProjectValue)
		s.TotalPaid = s.TotalPaid.Add(r.PaidAmount)
		s.CompletedProjects++

		switch r.PaymentStatus {
		case PaymentPaid:
			s.PaidProjects++
		case PaymentPartial:
			s.PartialProjects++
		case PaymentPending:
			s.PendingProjects++
		}
		if q.InPeriod(at, now) {
			s.PeriodRevenue = s.PeriodRevenue.Add(r.ProjectValue)
			s.PeriodPaid = s.PeriodPaid.Add(r.PaidAmount)
			s.PeriodProjects++
			s.Records = append(s.Records, r)
		}
		if thisMonth.InPeriod(at, now) {
			s.ThisMonthRevenue = s.ThisMonthRevenue.Add(r.ProjectValue)
		}
		if lastMonth.InPeriod(at, now) {
			s.LastMonthRevenue = s.LastMonthRevenue.Add(r.ProjectValue)
		}
	}

	s.TotalPending = s.TotalRevenue.Sub(s.TotalPaid)
	if s.CompletedProjects > 0 {
		s.AvgProjectValue = s.TotalRevenue.Div(decimal.NewFromInt(int64(s.CompletedProjects))).Round(2)
	}
	switch {
	case s.LastMonthRevenue.IsPositive():
		s.RevenueChange = s.ThisMonthRevenue.Sub(s.LastMonthRevenue).
			Div(s.LastMonthRevenue).Mul(hundred).Round(2)
	case s.ThisMonthRevenue.IsPositive():
		s.RevenueChange = hundred
	}
	return s, nil
}

func sameMonth(t time.Time, year int, month time.Month) bool {
	return t.Year() == year && t.Month() == month
}
