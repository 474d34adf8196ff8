package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

const (
	CategorySoftware  Category = "software"
	CategoryMarketing Category = "marketing"
	CategorySalaries  Category = "salaries"
	CategoryOffice    Category = "office"
	CategoryTravel    Category = "travel"
	CategoryEquipment Category = "equipment"
	CategoryUtilities Category = "utilities"
	CategoryOther     Category = "other"

	// CategoryTotal is only meaningful on budgets: it covers every category.
	CategoryTotal Category = "total"
)

const (
	RecurrenceNone    RecurrenceInterval = "none"
	RecurrenceWeekly  RecurrenceInterval = "weekly"
	RecurrenceMonthly RecurrenceInterval = "monthly"
	RecurrenceYearly  RecurrenceInterval = "yearly"
)

const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

const maxDescriptionLength = 500

type (
	Category           string
	RecurrenceInterval string
	BudgetPeriod       string

	// Date is a calendar date without time of day or zone.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID                 string             `json:"id,omitempty"`
		OwnerID            string             `json:"ownerId,omitempty"`
		Amount             Money              `json:"amount"`
		Category           Category           `json:"category"`
		Description        string             `json:"description"`
		Date               Date               `json:"date"`
		IsRecurring        bool               `json:"isRecurring"`
		RecurrenceInterval RecurrenceInterval `json:"recurrenceInterval"`
		NextDueDate        *Date              `json:"nextDueDate,omitempty"`
		IsPaid             bool               `json:"isPaid"`
		CreatedAt          time.Time          `json:"createdAt"`
	}

	Budget struct {
		ID        string       `json:"id,omitempty"`
		OwnerID   string       `json:"ownerId,omitempty"`
		Category  Category     `json:"category"`
		Amount    Money        `json:"amount"`
		Period    BudgetPeriod `json:"period"`
		StartDate Date         `json:"startDate"`
		CreatedAt time.Time    `json:"createdAt"`
	}

	Profile struct {
		UserID    string    `json:"userId"`
		Bio       string    `json:"bio"`
		Location  string    `json:"location"`
		Company   string    `json:"company"`
		Phone     string    `json:"phone"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidRecurrence  = errors.New("invalid recurrence interval")
	ErrInvalidPeriod      = errors.New("invalid budget period")
	ErrInvalidDate        = errors.New("invalid date")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrRecurrenceMismatch = errors.New("recurring flag does not match recurrence interval")
)

// Categories returns the fixed set of expense categories.
func Categories() []Category {
	return []Category{
		CategorySoftware, CategoryMarketing, CategorySalaries, CategoryOffice,
		CategoryTravel, CategoryEquipment, CategoryUtilities, CategoryOther,
	}
}

func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// IsValidForBudget also accepts CategoryTotal.
func (c Category) IsValidForBudget() bool {
	return c == CategoryTotal || c.IsValid()
}

func (r RecurrenceInterval) IsValid() bool {
	switch r {
	case RecurrenceNone, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

func (p BudgetPeriod) IsValid() bool {
	return p == PeriodMonthly || p == PeriodYearly
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf keeps the wall-clock calendar date of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// DaysSince returns the number of whole calendar days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.Time.Sub(other.Time).Hours() / 24)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths shifts d by n months with time.AddDate normalization, so callers
// that must not overflow into the next month should anchor at day 1.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps too; only the calendar part is kept.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Expense) Validate() error {
	if e.Date.IsEmpty() {
		return ErrInvalidDate
	}
	if e.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !e.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	if !e.RecurrenceInterval.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrence, e.RecurrenceInterval)
	}
	if e.IsRecurring != (e.RecurrenceInterval != RecurrenceNone) {
		return ErrRecurrenceMismatch
	}
	if len(e.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !b.Category.IsValidForBudget() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, b.Category)
	}
	if !b.Period.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, b.Period)
	}
	if b.StartDate.IsEmpty() {
		return ErrInvalidDate
	}
	return nil
}

// DefaultProfile is what a principal without a stored profile sees.
func DefaultProfile(userID string) Profile {
	return Profile{UserID: userID}
}

// Record identities, used by the collection synchronizer.
func (e Expense) RecordID() string { return e.ID }
func (b Budget) RecordID() string  { return b.ID }
func (p Profile) RecordID() string { return p.UserID }
