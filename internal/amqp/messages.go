package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratik-sharma-25/expenseTracker/internal/core"
)

// Channel names for the three mutation intents. Each is both the queue name
// and the routing key on the direct exchange.
const (
	ChannelCreate = "create-expense"
	ChannelUpdate = "update-expense"
	ChannelDelete = "delete-expense"

	// DeadLetterQueue receives messages that could not be decoded or applied.
	DeadLetterQueue = "expense-dead-letter"
)

// Channels lists the intent channels the apply worker subscribes to.
var Channels = []string{ChannelCreate, ChannelUpdate, ChannelDelete}

// CreateMessage is the wire payload on the create-expense channel.
type CreateMessage struct {
	ExpenseID   string          `json:"expenseId"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Date        core.Date       `json:"date"`
	Type        string          `json:"type"`
	User        string          `json:"user"`
	CreatedOn   time.Time       `json:"createdOn"`
}

// UpdateMessage is the wire payload on the update-expense channel.
type UpdateMessage struct {
	ExpenseID   string          `json:"expenseId"`
	UserID      string          `json:"userId"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Date        core.Date       `json:"date"`
	Type        string          `json:"type"`
	UpdatedOn   time.Time       `json:"updatedOn"`
}

// DeleteMessage is the wire payload on the delete-expense channel.
type DeleteMessage struct {
	UserID    string `json:"userId"`
	ExpenseID string `json:"expenseId"`
}

// DeadLetterMessage wraps an undeliverable payload with its origin and the
// reason it was parked.
type DeadLetterMessage struct {
	Channel  string    `json:"channel"`
	Reason   string    `json:"reason"`
	Body     []byte    `json:"body"`
	ParkedOn time.Time `json:"parkedOn"`
}

// EncodeIntent serializes a mutation intent into the wire payload for its
// channel.
func EncodeIntent(intent core.MutationIntent) (channel string, body []byte, err error) {
	if err := intent.Validate(); err != nil {
		return "", nil, err
	}

	switch intent.Kind {
	case core.KindCreate:
		channel = ChannelCreate
		body, err = json.Marshal(CreateMessage{
			ExpenseID:   intent.ExpenseID,
			Title:       intent.Fields.Title,
			Description: intent.Fields.Description,
			Amount:      intent.Fields.Amount,
			Date:        intent.Fields.Date,
			Type:        string(intent.Fields.Type),
			User:        intent.UserID,
			CreatedOn:   intent.StampedOn,
		})
	case core.KindUpdate:
		channel = ChannelUpdate
		body, err = json.Marshal(UpdateMessage{
			ExpenseID:   intent.ExpenseID,
			UserID:      intent.UserID,
			Title:       intent.Fields.Title,
			Description: intent.Fields.Description,
			Amount:      intent.Fields.Amount,
			Date:        intent.Fields.Date,
			Type:        string(intent.Fields.Type),
			UpdatedOn:   intent.StampedOn,
		})
	case core.KindDelete:
		channel = ChannelDelete
		body, err = json.Marshal(DeleteMessage{
			UserID:    intent.UserID,
			ExpenseID: intent.ExpenseID,
		})
	}
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s intent: %w", intent.Kind, err)
	}

	return channel, body, nil
}

// DecodeIntent parses a wire payload back into a mutation intent. The variant
// is determined by the channel the message arrived on. The delete payload
// carries no timestamp, so the apply time is stamped here.
func DecodeIntent(channel string, body []byte) (core.MutationIntent, error) {
	switch channel {
	case ChannelCreate:
		var msg CreateMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return core.MutationIntent{}, fmt.Errorf("unmarshal create payload: %w", err)
		}
		intent := core.MutationIntent{
			Kind:      core.KindCreate,
			ExpenseID: msg.ExpenseID,
			UserID:    msg.User,
			Fields: &core.ExpenseFields{
				Title:       msg.Title,
				Description: msg.Description,
				Amount:      msg.Amount,
				Date:        msg.Date,
				Type:        core.ExpenseType(msg.Type),
			},
			StampedOn: msg.CreatedOn,
		}
		return intent, intent.Validate()
	case ChannelUpdate:
		var msg UpdateMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return core.MutationIntent{}, fmt.Errorf("unmarshal update payload: %w", err)
		}
		intent := core.MutationIntent{
			Kind:      core.KindUpdate,
			ExpenseID: msg.ExpenseID,
			UserID:    msg.UserID,
			Fields: &core.ExpenseFields{
				Title:       msg.Title,
				Description: msg.Description,
				Amount:      msg.Amount,
				Date:        msg.Date,
				Type:        core.ExpenseType(msg.Type),
			},
			StampedOn: msg.UpdatedOn,
		}
		return intent, intent.Validate()
	case ChannelDelete:
		var msg DeleteMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return core.MutationIntent{}, fmt.Errorf("unmarshal delete payload: %w", err)
		}
		intent := core.MutationIntent{
			Kind:      core.KindDelete,
			ExpenseID: msg.ExpenseID,
			UserID:    msg.UserID,
			StampedOn: time.Now().UTC(),
		}
		return intent, intent.Validate()
	default:
		return core.MutationIntent{}, fmt.Errorf("unknown channel %q", channel)
	}
}
