package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	AccountChecking   AccountType = "CHECKING"
	AccountSavings    AccountType = "SAVINGS"
	AccountCreditCard AccountType = "CREDIT_CARD"
	AccountCash       AccountType = "CASH"
	AccountInvestment AccountType = "INVESTMENT"
	AccountOther      AccountType = "OTHER"
)

const (
	DebtCreditCard  DebtType = "CREDIT_CARD"
	DebtLoan        DebtType = "LOAN"
	DebtMortgage    DebtType = "MORTGAGE"
	DebtPersonal    DebtType = "PERSONAL"
	DebtOtherType   DebtType = "OTHER"
)

const maxNameLen = 100

type (
	TransactionType string
	AccountType     string
	DebtType        string

	// User is created lazily on first authenticated request by copying
	// fields from the external identity provider.
	User struct {
		ID         int64
		ExternalID string
		Email      string
		Name       string
		Currency   string // ISO 4217 code, e.g. "EUR"
		Timezone   string
	}

	Account struct {
		ID         int64
		UserID     int64
		Name       string
		Type       AccountType
		Provider   string
		LastFour   string
		IsArchived bool
	}

	Category struct {
		ID         int64
		UserID     int64
		Name       string
		Kind       TransactionType // INCOME or EXPENSE
		Color      string
		Icon       string
		IsArchived bool
	}

	IncomeSource struct {
		ID         int64
		UserID     int64
		Name       string
		IsArchived bool
	}

	Transaction struct {
		ID             int64
		UserID         int64
		Type           TransactionType
		Amount         Money
		Currency       string
		OccurredAt     time.Time
		Description    string
		CategoryID     *int64
		AccountID      *int64
		IncomeSourceID *int64
	}

	Debt struct {
		ID             int64
		UserID         int64
		Name           string
		Type           DebtType
		Balance        Money // may go negative on overpayment; not clamped
		APR            *float64
		MinimumPayment Money
		Lender         string
		DueDay         *int // day of month, 1-31
		IsClosed       bool
	}

	DebtPayment struct {
		ID        int64
		UserID    int64
		DebtID    int64
		Amount    Money
		PaidAt    time.Time
		Principal *Money
		Interest  *Money
		Note      string
	}

	SavingsGoal struct {
		ID            int64
		UserID        int64
		Name          string
		TargetAmount  Money
		CurrentAmount Money
		Deadline      *time.Time
		IsArchived    bool
	}

	GoalContribution struct {
		ID     int64
		UserID int64
		GoalID int64
		Amount Money
		MadeAt time.Time
		Note   string
	}
)

// ValidTransactionType reports whether t is one of the known enum values.
func ValidTransactionType(t TransactionType) bool {
	return t == Income || t == Expense
}

// ValidAccountType reports whether t is one of the known enum values.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCreditCard, AccountCash, AccountInvestment, AccountOther:
		return true
	}
	return false
}

// ValidDebtType reports whether t is one of the known enum values.
func ValidDebtType(t DebtType) bool {
	switch t {
	case DebtCreditCard, DebtLoan, DebtMortgage, DebtPersonal, DebtOtherType:
		return true
	}
	return false
}

func validName(field, name string, fe FieldErrors) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		fe[field] = "must not be empty"
	} else if len(trimmed) > maxNameLen {
		fe[field] = "too long (max 100 characters)"
	}
}

func (a Account) Validate() error {
	fe := FieldErrors{}
	validName("name", a.Name, fe)
	if !ValidAccountType(a.Type) {
		fe["type"] = "unknown account type"
	}
	if len(a.LastFour) > 4 {
		fe["lastFour"] = "at most 4 characters"
	}
	return fe.OrNil()
}

func (c Category) Validate() error {
	fe := FieldErrors{}
	validName("name", c.Name, fe)
	if !ValidTransactionType(c.Kind) {
		fe["kind"] = "must be INCOME or EXPENSE"
	}
	return fe.OrNil()
}

func (s IncomeSource) Validate() error {
	fe := FieldErrors{}
	validName("name", s.Name, fe)
	return fe.OrNil()
}

func (t Transaction) Validate() error {
	fe := FieldErrors{}
	if !ValidTransactionType(t.Type) {
		fe["type"] = "must be INCOME or EXPENSE"
	}
	if t.Amount.Cents <= 0 {
		fe["amount"] = "must be greater than zero"
	}
	if t.OccurredAt.IsZero() {
		fe["occurredAt"] = "must be set"
	}
	if len(t.Description) > 200 {
		fe["description"] = "too long (max 200 characters)"
	}
	if t.Currency != "" && len(t.Currency) != 3 {
		fe["currency"] = "must be a 3-letter currency code"
	}
	return fe.OrNil()
}

func (d Debt) Validate() error {
	fe := FieldErrors{}
	validName("name", d.Name, fe)
	if !ValidDebtType(d.Type) {
		fe["type"] = "unknown debt type"
	}
	if d.APR != nil && (*d.APR < 0 || *d.APR > 100) {
		fe["apr"] = "must be between 0 and 100"
	}
	if d.MinimumPayment.Cents < 0 {
		fe["minimumPayment"] = "must not be negative"
	}
	if d.DueDay != nil && (*d.DueDay < 1 || *d.DueDay > 31) {
		fe["dueDay"] = "must be between 1 and 31"
	}
	return fe.OrNil()
}

func (p DebtPayment) Validate() error {
	fe := FieldErrors{}
	if p.Amount.Cents <= 0 {
		fe["amount"] = "must be greater than zero"
	}
	if p.PaidAt.IsZero() {
		fe["paidAt"] = "must be set"
	}
	if p.Principal != nil && p.Principal.Cents < 0 {
		fe["principal"] = "must not be negative"
	}
	if p.Interest != nil && p.Interest.Cents < 0 {
		fe["interest"] = "must not be negative"
	}
	if len(p.Note) > 200 {
		fe["note"] = "too long (max 200 characters)"
	}
	return fe.OrNil()
}

func (g SavingsGoal) Validate() error {
	fe := FieldErrors{}
	validName("name", g.Name, fe)
	if g.TargetAmount.Cents <= 0 {
		fe["targetAmount"] = "must be greater than zero"
	}
	return fe.OrNil()
}

func (c GoalContribution) Validate() error {
	fe := FieldErrors{}
	if c.Amount.Cents <= 0 {
		fe["amount"] = "must be greater than zero"
	}
	if c.MadeAt.IsZero() {
		fe["madeAt"] = "must be set"
	}
	if len(c.Note) > 200 {
		fe["note"] = "too long (max 200 characters)"
	}
	return fe.OrNil()
}
