// Package importer converts raw bank-statement CSV text into transactions.
// Row-level problems are soft: they become skip reasons in the summary
// instead of failing the batch.
package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/log"
)

// Mapping names the CSV column headers that carry each semantic field.
// Date, Amount and Category are required; the rest are optional.
type Mapping struct {
	Date        string
	Amount      string
	Category    string
	Merchant    string
	Description string
	Account     string
}

// Summary reports what one import run did.
type Summary struct {
	Imported          int      `json:"imported"`
	Skipped           int      `json:"skipped"`
	SkippedReasons    []string `json:"skippedReasons"`
	CategoriesCreated int      `json:"categoriesCreated"`
	AccountsCreated   int      `json:"accountsCreated"`
	Message           string   `json:"message"`
}

// Store is the slice of the ledger store the pipeline needs.
type Store interface {
	FindOrCreateCategory(ctx context.Context, userID int64, name string, kind core.TransactionType, color string) (int64, bool, error)
	FindOrCreateAccount(ctx context.Context, userID int64, name string) (int64, bool, error)
	BulkInsertImported(ctx context.Context, txns []core.Transaction) (int, error)
}

// Statement dates arrive in whatever shape the bank exports; these are tried
// in order and the first hit wins.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"02 Jan 2006",
}

// categoryPalette is cycled for categories created during import so they get
// a distinguishable color without user input.
var categoryPalette = []string{
	"#4E79A7", "#F28E2B", "#E15759", "#76B7B2", "#59A14F",
	"#EDC948", "#B07AA1", "#FF9DA7", "#9C755F", "#BAB0AC",
}

type Importer struct {
	store     Store
	logger    *log.Logger
	retention time.Duration
	now       func() time.Time
}

func New(store Store, logger *log.Logger, retention time.Duration) *Importer {
	return &Importer{
		store:     store,
		logger:    logger.WithComponent(log.ComponentImporter),
		retention: retention,
		now:       time.Now,
	}
}

// Run parses raw CSV text and inserts the resulting transactions for userID.
// The returned error is non-nil only for request-level problems (missing
// columns, empty payload, storage failure); bad rows are reported through the
// summary instead.
func (imp *Importer) Run(ctx context.Context, userID int64, currency, raw string, m Mapping) (Summary, error) {
	var summary Summary

	lines := splitLines(raw)
	if len(lines) < 2 {
		return summary, core.FieldErrors{"content": "needs a header row and at least one data row"}
	}

	// Columns resolve by exact header match. The split is a plain comma
	// split with no quoted-field handling; a field containing a comma will
	// misalign its row, which then gets skipped on the column-count check.
	header := strings.Split(lines[0], ",")
	cols, err := resolveColumns(header, m)
	if err != nil {
		return summary, err
	}

	cutoff := imp.now().Add(-imp.retention)
	categoryIDs := map[string]int64{}
	accountIDs := map[string]int64{}
	var pending []core.Transaction

	for i, line := range lines[1:] {
		rowNum := i + 2
		txn, reason, err := imp.buildRow(ctx, userID, currency, line, header, cols, cutoff,
			categoryIDs, accountIDs, &summary)
		if err != nil {
			return Summary{}, err
		}
		if reason != "" {
			summary.Skipped++
			summary.SkippedReasons = append(summary.SkippedReasons, fmt.Sprintf("row %d: %s", rowNum, reason))
			continue
		}
		if txn != nil {
			pending = append(pending, *txn)
		}
	}

	inserted, err := imp.store.BulkInsertImported(ctx, pending)
	if err != nil {
		return Summary{}, fmt.Errorf("insert imported transactions: %w", err)
	}
	summary.Imported = inserted
	summary.Message = fmt.Sprintf("Imported %d transactions, skipped %d", summary.Imported, summary.Skipped)

	imp.logger.InfoContext(ctx, "import finished",
		log.FieldUserID, userID,
		log.FieldImported, summary.Imported,
		log.FieldSkipped, summary.Skipped)
	return summary, nil
}

// buildRow converts one CSV line. It returns (nil, "", nil) when the row is
// well-formed but outside the retention window: old rows are filtered, not
// reported. A panic while handling the row is recovered into a skip reason so
// one malformed line can never abort the batch.
func (imp *Importer) buildRow(ctx context.Context, userID int64, currency, line string,
	header []string, cols columns, cutoff time.Time,
	categoryIDs, accountIDs map[string]int64, summary *Summary,
) (txn *core.Transaction, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			txn, err = nil, nil
			reason = fmt.Sprintf("unexpected error: %v", r)
		}
	}()

	fields := strings.Split(line, ",")
	if len(fields) != len(header) {
		return nil, fmt.Sprintf("expected %d columns, got %d", len(header), len(fields)), nil
	}

	occurredAt, ok := parseDate(fields[cols.date])
	if !ok {
		return nil, fmt.Sprintf("unparsable date %q", fields[cols.date]), nil
	}
	if occurredAt.Before(cutoff) {
		return nil, "", nil
	}

	amount, ok := parseAmount(fields[cols.amount])
	if !ok {
		return nil, fmt.Sprintf("unparsable amount %q", fields[cols.amount]), nil
	}

	categoryName := strings.TrimSpace(fields[cols.category])
	if categoryName == "" {
		return nil, "empty category", nil
	}
	categoryID, ok := categoryIDs[categoryName]
	if !ok {
		color := categoryPalette[len(categoryIDs)%len(categoryPalette)]
		id, created, err := imp.store.FindOrCreateCategory(ctx, userID, categoryName, core.Expense, color)
		if err != nil {
			return nil, "", fmt.Errorf("resolve category %q: %w", categoryName, err)
		}
		if created {
			summary.CategoriesCreated++
		}
		categoryIDs[categoryName] = id
		categoryID = id
	}

	var accountID *int64
	if cols.account >= 0 {
		if name := strings.TrimSpace(fields[cols.account]); name != "" {
			id, ok := accountIDs[name]
			if !ok {
				var created bool
				var err error
				id, created, err = imp.store.FindOrCreateAccount(ctx, userID, name)
				if err != nil {
					return nil, "", fmt.Errorf("resolve account %q: %w", name, err)
				}
				if created {
					summary.AccountsCreated++
				}
				accountIDs[name] = id
			}
			accountID = &id
		}
	}

	return &core.Transaction{
		UserID:      userID,
		Type:        core.Expense,
		Amount:      amount,
		Currency:    currency,
		OccurredAt:  occurredAt,
		Description: composeDescription(fields, cols),
		CategoryID:  &categoryID,
		AccountID:   accountID,
	}, "", nil
}

type columns struct {
	date        int
	amount      int
	category    int
	merchant    int
	description int
	account     int
}

func resolveColumns(header []string, m Mapping) (columns, error) {
	index := func(name string) int {
		if name == "" {
			return -1
		}
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
		return -1
	}

	cols := columns{
		date:        index(m.Date),
		amount:      index(m.Amount),
		category:    index(m.Category),
		merchant:    index(m.Merchant),
		description: index(m.Description),
		account:     index(m.Account),
	}

	fe := core.FieldErrors{}
	if m.Date == "" || cols.date < 0 {
		fe["date"] = fmt.Sprintf("column %q not found in header", m.Date)
	}
	if m.Amount == "" || cols.amount < 0 {
		fe["amount"] = fmt.Sprintf("column %q not found in header", m.Amount)
	}
	if m.Category == "" || cols.category < 0 {
		fe["category"] = fmt.Sprintf("column %q not found in header", m.Category)
	}
	return cols, fe.OrNil()
}

func splitLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount strips currency symbols and thousands separators, then takes
// the absolute value: statement rows import as positive expense amounts
// regardless of sign convention.
func parseAmount(s string) (core.Money, bool) {
	s = strings.TrimSpace(s)
	for _, sym := range []string{"£", "$", "€", ",", " "} {
		s = strings.ReplaceAll(s, sym, "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, false
	}
	m := core.MoneyFromDecimal(d.Abs())
	if m.Cents <= 0 {
		return core.Money{}, false
	}
	return m, true
}

func composeDescription(fields []string, cols columns) string {
	var parts []string
	for _, idx := range []int{cols.merchant, cols.description} {
		if idx >= 0 {
			if v := strings.TrimSpace(fields[idx]); v != "" {
				parts = append(parts, v)
			}
		}
	}
	return strings.Join(parts, " - ")
}
