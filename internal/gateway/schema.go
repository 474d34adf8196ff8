package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"unidiary/internal/core"
)

// TimestampLayout is fixed-width so canonical timestamps sort as strings.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Field names with server-side meaning.
const (
	ColumnID        = "id"
	ColumnOwnerID   = "ownerId"
	ColumnUserID    = "userId"
	ColumnCreatedAt = "createdAt"
	ColumnUpdatedAt = "updatedAt"
)

type ColumnType int

const (
	TypeText ColumnType = iota + 1
	TypeBool
	TypeMoney
	TypeDate
	TypeTimestamp
)

type Column struct {
	Key      string // field name in rows
	Name     string // SQL column name
	Type     ColumnType
	Nullable bool
	Required bool // must be supplied on insert
	Default  any
	Check    func(any) error
}

type Schema struct {
	Table    Table
	Key      string
	Columns  []Column
	Validate func(Row) error // whole-row rule, applied on insert and to merged rows on update
}

var (
	errUnknownColumn = errors.New("unknown column")
	errMissingColumn = errors.New("missing required column")
	errNullColumn    = errors.New("column must not be null")
	errBadValue      = errors.New("bad value")
	errEmptyPatch    = errors.New("empty patch")
	errImmutable     = errors.New("column is immutable")
)

var schemas = map[Table]Schema{
	TableExpenses: {
		Table: TableExpenses,
		Key:   ColumnID,
		Columns: []Column{
			{Key: ColumnID, Name: "id", Type: TypeText},
			{Key: ColumnOwnerID, Name: "owner_id", Type: TypeText, Nullable: true},
			{Key: "amount", Name: "amount_cents", Type: TypeMoney, Required: true, Check: nonNegativeMoney},
			{Key: "category", Name: "category", Type: TypeText, Required: true, Check: expenseCategory},
			{Key: "description", Name: "description", Type: TypeText, Default: "", Check: descriptionLength},
			{Key: "date", Name: "expense_date", Type: TypeDate, Required: true},
			{Key: "isRecurring", Name: "is_recurring", Type: TypeBool, Default: false},
			{Key: "recurrenceInterval", Name: "recurrence_interval", Type: TypeText, Default: string(core.RecurrenceNone), Check: recurrenceInterval},
			{Key: "nextDueDate", Name: "next_due_date", Type: TypeDate, Nullable: true},
			{Key: "isPaid", Name: "is_paid", Type: TypeBool, Default: false},
			{Key: ColumnCreatedAt, Name: "created_at", Type: TypeTimestamp},
		},
		Validate: recurringConsistent,
	},
	TableBudgets: {
		Table: TableBudgets,
		Key:   ColumnID,
		Columns: []Column{
			{Key: ColumnID, Name: "id", Type: TypeText},
			{Key: ColumnOwnerID, Name: "owner_id", Type: TypeText, Nullable: true},
			{Key: "category", Name: "category", Type: TypeText, Required: true, Check: budgetCategory},
			{Key: "amount", Name: "amount_cents", Type: TypeMoney, Required: true, Check: positiveMoney},
			{Key: "period", Name: "period", Type: TypeText, Required: true, Check: budgetPeriod},
			{Key: "startDate", Name: "start_date", Type: TypeDate, Required: true},
			{Key: ColumnCreatedAt, Name: "created_at", Type: TypeTimestamp},
		},
	},
	TableProfiles: {
		Table: TableProfiles,
		Key:   ColumnUserID,
		Columns: []Column{
			{Key: ColumnUserID, Name: "user_id", Type: TypeText, Required: true},
			{Key: "bio", Name: "bio", Type: TypeText, Default: ""},
			{Key: "location", Name: "location", Type: TypeText, Default: ""},
			{Key: "company", Name: "company", Type: TypeText, Default: ""},
			{Key: "phone", Name: "phone", Type: TypeText, Default: ""},
			{Key: ColumnCreatedAt, Name: "created_at", Type: TypeTimestamp},
			{Key: ColumnUpdatedAt, Name: "updated_at", Type: TypeTimestamp},
		},
	},
}

// SchemaFor returns the schema of a known table.
func SchemaFor(table Table) (Schema, error) {
	s, ok := schemas[table]
	if !ok {
		return Schema{}, Validation("schema", table, fmt.Errorf("unknown table %q", table))
	}
	return s, nil
}

func (s Schema) Column(key string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// PrepareInsert canonicalizes a new row and fills server-populated fields
// and defaults.
func (s Schema) PrepareInsert(row Row, now time.Time) (Row, error) {
	out := make(Row, len(s.Columns))
	for k, v := range row {
		c, ok := s.Column(k)
		if !ok {
			return nil, fmt.Errorf("%w: %q", errUnknownColumn, k)
		}
		cv, err := Canonical(c, v)
		if err != nil {
			return nil, err
		}
		out[k] = cv
	}

	if s.Key == ColumnID {
		if id, _ := out[ColumnID].(string); id == "" {
			out[ColumnID] = uuid.New().String()
		}
	}
	stamp := now.UTC().Format(TimestampLayout)
	if _, ok := s.Column(ColumnCreatedAt); ok && out[ColumnCreatedAt] == nil {
		out[ColumnCreatedAt] = stamp
	}
	if _, ok := s.Column(ColumnUpdatedAt); ok {
		out[ColumnUpdatedAt] = stamp
	}

	for _, c := range s.Columns {
		if _, present := out[c.Key]; present {
			continue
		}
		if c.Required {
			return nil, fmt.Errorf("%w: %q", errMissingColumn, c.Key)
		}
		out[c.Key] = c.Default
	}
	if s.Validate != nil {
		if err := s.Validate(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PreparePatch canonicalizes a partial update. Identity and creation time
// cannot be changed.
func (s Schema) PreparePatch(patch Row, now time.Time) (Row, error) {
	if len(patch) == 0 {
		return nil, errEmptyPatch
	}
	out := make(Row, len(patch)+1)
	for k, v := range patch {
		if k == s.Key || k == ColumnCreatedAt {
			return nil, fmt.Errorf("%w: %q", errImmutable, k)
		}
		c, ok := s.Column(k)
		if !ok {
			return nil, fmt.Errorf("%w: %q", errUnknownColumn, k)
		}
		cv, err := Canonical(c, v)
		if err != nil {
			return nil, err
		}
		out[k] = cv
	}
	if _, ok := s.Column(ColumnUpdatedAt); ok {
		out[ColumnUpdatedAt] = now.UTC().Format(TimestampLayout)
	}
	return out, nil
}

// PrepareFilters canonicalizes filter values against their column types.
func (s Schema) PrepareFilters(filters []Filter) ([]Filter, error) {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		c, ok := s.Column(f.Column)
		if !ok {
			return nil, fmt.Errorf("%w: %q", errUnknownColumn, f.Column)
		}
		v, err := canonicalValue(c, f.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, Filter{Column: f.Column, Value: v})
	}
	return out, nil
}

// Canonical converts v to the canonical representation of the column and
// applies its check.
func Canonical(c Column, v any) (any, error) {
	cv, err := canonicalValue(c, v)
	if err != nil {
		return nil, err
	}
	if cv == nil {
		if !c.Nullable {
			return nil, fmt.Errorf("%w: %q", errNullColumn, c.Key)
		}
		return nil, nil
	}
	if c.Check != nil {
		if err := c.Check(cv); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Key, err)
		}
	}
	return cv, nil
}

func canonicalValue(c Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	bad := func() error { return fmt.Errorf("%w for %q: %v", errBadValue, c.Key, v) }

	switch c.Type {
	case TypeText:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.String {
			return nil, bad()
		}
		return rv.String(), nil

	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, bad()
		}
		return b, nil

	case TypeMoney:
		d, err := toDecimal(v)
		if err != nil {
			return nil, bad()
		}
		return json.Number(d.Round(2).String()), nil

	case TypeDate:
		switch t := v.(type) {
		case core.Date:
			return dateOrNil(t), nil
		case *core.Date:
			if t == nil {
				return nil, nil
			}
			return dateOrNil(*t), nil
		case time.Time:
			return core.DateOf(t).String(), nil
		case string:
			if t == "" {
				return nil, nil
			}
			if len(t) > len(core.DateLayout) {
				t = t[:len(core.DateLayout)]
			}
			d, err := core.ParseDate(t)
			if err != nil {
				return nil, bad()
			}
			return d.String(), nil
		}
		return nil, bad()

	case TypeTimestamp:
		switch t := v.(type) {
		case time.Time:
			if t.IsZero() {
				return nil, nil
			}
			return t.UTC().Format(TimestampLayout), nil
		case string:
			if t == "" {
				return nil, nil
			}
			parsed, err := ParseTimestamp(t)
			if err != nil {
				return nil, bad()
			}
			return parsed.UTC().Format(TimestampLayout), nil
		}
		return nil, bad()
	}
	return nil, bad()
}

// ParseTimestamp accepts RFC 3339 strings and the space-separated form some
// SQL drivers produce.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", errBadValue, s)
}

func dateOrNil(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case core.Money:
		return n.Decimal(), nil
	case decimal.Decimal:
		return n, nil
	}
	return decimal.Decimal{}, errBadValue
}

// MoneyOf reads a canonical money value.
func MoneyOf(v any) (core.Money, error) {
	d, err := toDecimal(v)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

func nonNegativeMoney(v any) error {
	m, err := MoneyOf(v)
	if err != nil || m.Cents < 0 {
		return core.ErrInvalidAmount
	}
	return nil
}

func positiveMoney(v any) error {
	m, err := MoneyOf(v)
	if err != nil || m.Cents <= 0 {
		return core.ErrInvalidAmount
	}
	return nil
}

func expenseCategory(v any) error {
	if !core.Category(v.(string)).IsValid() {
		return core.ErrInvalidCategory
	}
	return nil
}

func budgetCategory(v any) error {
	if !core.Category(v.(string)).IsValidForBudget() {
		return core.ErrInvalidCategory
	}
	return nil
}

func budgetPeriod(v any) error {
	if !core.BudgetPeriod(v.(string)).IsValid() {
		return core.ErrInvalidPeriod
	}
	return nil
}

func recurrenceInterval(v any) error {
	if !core.RecurrenceInterval(v.(string)).IsValid() {
		return core.ErrInvalidRecurrence
	}
	return nil
}

func descriptionLength(v any) error {
	if len(v.(string)) > 500 {
		return core.ErrDescriptionTooLong
	}
	return nil
}

func recurringConsistent(row Row) error {
	recurring, _ := row["isRecurring"].(bool)
	interval, _ := row["recurrenceInterval"].(string)
	if recurring != (interval != string(core.RecurrenceNone)) {
		return core.ErrRecurrenceMismatch
	}
	return nil
}
