package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validFields() ExpenseFields {
	return ExpenseFields{
		Title:       "Lunch",
		Description: "team lunch",
		Amount:      decimal.RequireFromString("12.5"),
		Date:        NewDate(2024, 3, 1),
		Type:        Debit,
	}
}

func TestExpenseFields_Validate(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*ExpenseFields)
		wantErr error
	}{
		{
			name:    "valid debit",
			mutate:  func(f *ExpenseFields) {},
			wantErr: nil,
		},
		{
			name:    "valid credit with zero amount",
			mutate:  func(f *ExpenseFields) { f.Type = Credit; f.Amount = decimal.Zero },
			wantErr: nil,
		},
		{
			name:    "empty title",
			mutate:  func(f *ExpenseFields) { f.Title = "   " },
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "negative amount",
			mutate:  func(f *ExpenseFields) { f.Amount = decimal.RequireFromString("-0.01") },
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "future date",
			mutate:  func(f *ExpenseFields) { f.Date = NewDate(2024, 6, 16) },
			wantErr: ErrFutureDate,
		},
		{
			name:    "today is not future",
			mutate:  func(f *ExpenseFields) { f.Date = NewDate(2024, 6, 15) },
			wantErr: nil,
		},
		{
			name:    "zero date",
			mutate:  func(f *ExpenseFields) { f.Date = Date{} },
			wantErr: ErrInvalidDate,
		},
		{
			name:    "unknown type",
			mutate:  func(f *ExpenseFields) { f.Type = "transfer" },
			wantErr: ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			err := f.Validate(now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMutationIntent_Validate(t *testing.T) {
	fields := validFields()

	tests := []struct {
		name    string
		intent  MutationIntent
		wantErr error
	}{
		{
			name:    "valid create",
			intent:  MutationIntent{Kind: KindCreate, ExpenseID: "id-1", UserID: "u-1", Fields: &fields},
			wantErr: nil,
		},
		{
			name:    "valid delete without fields",
			intent:  MutationIntent{Kind: KindDelete, ExpenseID: "id-1", UserID: "u-1"},
			wantErr: nil,
		},
		{
			name:    "unknown kind",
			intent:  MutationIntent{Kind: "upsert", ExpenseID: "id-1", UserID: "u-1"},
			wantErr: ErrInvalidIntentKind,
		},
		{
			name:    "missing expense id",
			intent:  MutationIntent{Kind: KindUpdate, UserID: "u-1", Fields: &fields},
			wantErr: ErrMissingIdentity,
		},
		{
			name:    "missing owner",
			intent:  MutationIntent{Kind: KindUpdate, ExpenseID: "id-1", Fields: &fields},
			wantErr: ErrMissingOwner,
		},
		{
			name:    "update without fields",
			intent:  MutationIntent{Kind: KindUpdate, ExpenseID: "id-1", UserID: "u-1"},
			wantErr: ErrMissingFields,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.intent.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 3, 1)

	data, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(data) != `"2024-03-01"` {
		t.Errorf("MarshalJSON() = %s, want %q", data, "2024-03-01")
	}

	var parsed Date
	if err := parsed.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	if !parsed.Equal(d.Time) {
		t.Errorf("round trip = %v, want %v", parsed, d)
	}

	var bad Date
	if err := bad.UnmarshalJSON([]byte(`"01/03/2024"`)); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("UnmarshalJSON(invalid) = %v, want ErrInvalidDate", err)
	}
}

func TestSummaryPeriod_Validate(t *testing.T) {
	for _, p := range []SummaryPeriod{SummaryYearly, SummaryMonthly, SummaryWeekly} {
		if err := p.Validate(); err != nil {
			t.Errorf("Validate(%s) = %v, want nil", p, err)
		}
	}
	if err := SummaryPeriod("daily").Validate(); !errors.Is(err, ErrInvalidSummaryPeriod) {
		t.Errorf("Validate(daily) = %v, want ErrInvalidSummaryPeriod", err)
	}
}
