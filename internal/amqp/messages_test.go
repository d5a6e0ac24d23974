package amqp

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratik-sharma-25/expenseTracker/internal/core"
)

func createIntent() core.MutationIntent {
	return core.MutationIntent{
		Kind:      core.KindCreate,
		ExpenseID: "9f2c41a0-0000-0000-0000-000000000001",
		UserID:    "user-a",
		Fields: &core.ExpenseFields{
			Title:       "Lunch",
			Description: "team lunch",
			Amount:      decimal.RequireFromString("12.5"),
			Date:        core.NewDate(2024, 3, 1),
			Type:        core.Debit,
		},
		StampedOn: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEncodeDecode_Create(t *testing.T) {
	intent := createIntent()

	channel, body, err := EncodeIntent(intent)
	if err != nil {
		t.Fatalf("EncodeIntent() error = %v", err)
	}
	if channel != ChannelCreate {
		t.Errorf("channel = %s, want %s", channel, ChannelCreate)
	}
	// Amounts must travel as bare JSON numbers.
	if !strings.Contains(string(body), `"amount":12.5`) {
		t.Errorf("body %s does not carry amount as a number", body)
	}

	decoded, err := DecodeIntent(channel, body)
	if err != nil {
		t.Fatalf("DecodeIntent() error = %v", err)
	}
	if decoded.Kind != core.KindCreate {
		t.Errorf("Kind = %s, want create", decoded.Kind)
	}
	if decoded.ExpenseID != intent.ExpenseID || decoded.UserID != intent.UserID {
		t.Errorf("identity = (%s, %s), want (%s, %s)",
			decoded.ExpenseID, decoded.UserID, intent.ExpenseID, intent.UserID)
	}
	if !decoded.Fields.Amount.Equal(intent.Fields.Amount) {
		t.Errorf("Amount = %s, want %s", decoded.Fields.Amount, intent.Fields.Amount)
	}
	if !decoded.Fields.Date.Equal(intent.Fields.Date.Time) {
		t.Errorf("Date = %v, want %v", decoded.Fields.Date, intent.Fields.Date)
	}
	if !decoded.StampedOn.Equal(intent.StampedOn) {
		t.Errorf("StampedOn = %v, want %v", decoded.StampedOn, intent.StampedOn)
	}
}

func TestEncodeDecode_Update(t *testing.T) {
	intent := createIntent()
	intent.Kind = core.KindUpdate
	intent.Fields.Amount = decimal.RequireFromString("15")

	channel, body, err := EncodeIntent(intent)
	if err != nil {
		t.Fatalf("EncodeIntent() error = %v", err)
	}
	if channel != ChannelUpdate {
		t.Errorf("channel = %s, want %s", channel, ChannelUpdate)
	}

	decoded, err := DecodeIntent(channel, body)
	if err != nil {
		t.Fatalf("DecodeIntent() error = %v", err)
	}
	if decoded.Kind != core.KindUpdate {
		t.Errorf("Kind = %s, want update", decoded.Kind)
	}
	if !decoded.Fields.Amount.Equal(intent.Fields.Amount) {
		t.Errorf("Amount = %s, want 15", decoded.Fields.Amount)
	}
	if !decoded.StampedOn.Equal(intent.StampedOn) {
		t.Errorf("StampedOn = %v, want %v", decoded.StampedOn, intent.StampedOn)
	}
}

func TestEncodeDecode_Delete(t *testing.T) {
	intent := core.MutationIntent{
		Kind:      core.KindDelete,
		ExpenseID: "9f2c41a0-0000-0000-0000-000000000001",
		UserID:    "user-a",
	}

	channel, body, err := EncodeIntent(intent)
	if err != nil {
		t.Fatalf("EncodeIntent() error = %v", err)
	}
	if channel != ChannelDelete {
		t.Errorf("channel = %s, want %s", channel, ChannelDelete)
	}
	if strings.Contains(string(body), "title") {
		t.Errorf("delete payload %s should only carry the identity pair", body)
	}

	decoded, err := DecodeIntent(channel, body)
	if err != nil {
		t.Fatalf("DecodeIntent() error = %v", err)
	}
	if decoded.Fields != nil {
		t.Error("delete intent should have no field payload")
	}
	if decoded.StampedOn.IsZero() {
		t.Error("delete intent should be stamped at decode time")
	}
}

func TestEncodeIntent_Invalid(t *testing.T) {
	intent := createIntent()
	intent.ExpenseID = ""

	if _, _, err := EncodeIntent(intent); !errors.Is(err, core.ErrMissingIdentity) {
		t.Errorf("EncodeIntent() = %v, want ErrMissingIdentity", err)
	}
}

func TestDecodeIntent_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		body    []byte
	}{
		{"invalid json on create", ChannelCreate, []byte(`{"expenseId": `)},
		{"invalid json on update", ChannelUpdate, []byte(`not json`)},
		{"invalid json on delete", ChannelDelete, []byte(`[1,2,3`)},
		{"missing identity", ChannelCreate, []byte(`{"title":"x","amount":1,"date":"2024-03-01","type":"debit","user":"u"}`)},
		{"unknown channel", "rename-expense", []byte(`{}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeIntent(tt.channel, tt.body); err == nil {
				t.Error("DecodeIntent() should fail")
			}
		})
	}
}
