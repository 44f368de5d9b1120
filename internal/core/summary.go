package core

// CategoryAmount is an expense total aggregated under one category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthSummary is the per-month report: income and expense totals plus the
// expense breakdown by category.
type MonthSummary struct {
	Year       int
	Month      int // 1-12
	Income     Money
	Expenses   Money
	Net        Money
	ByCategory []CategoryAmount
}
