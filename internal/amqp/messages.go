package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"brokeometer/internal/core"
)

type MessageType string

const (
	TypeInsightRefresh MessageType = "insight.refresh"
	TypeExpenseSync    MessageType = "expense.sync"
	TypeExpenseDelete  MessageType = "expense.delete"
)

// Message is the single envelope carried on the queue. Which optional
// fields are set depends on Type.
type Message struct {
	Type      MessageType   `json:"type"`
	ExpenseID string        `json:"expense_id,omitempty"`
	Expense   *core.Expense `json:"expense,omitempty"`
	Period    string        `json:"period,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

var ErrInvalidMessage = errors.New("invalid message")

// NewInsightRefreshMessage asks the worker to regenerate the insight. An
// empty period means the month the worker handles it in.
func NewInsightRefreshMessage(period string) *Message {
	return &Message{Type: TypeInsightRefresh, Period: period, Timestamp: time.Now()}
}

// NewExpenseSyncMessage carries a newly created expense to mirror.
func NewExpenseSyncMessage(e core.Expense) *Message {
	return &Message{Type: TypeExpenseSync, ExpenseID: e.ID, Expense: &e, Timestamp: time.Now()}
}

func NewExpenseDeleteMessage(id string) *Message {
	return &Message{Type: TypeExpenseDelete, ExpenseID: id, Timestamp: time.Now()}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate checks that the fields required by the message type are present.
func (m *Message) Validate() error {
	switch m.Type {
	case TypeInsightRefresh:
		return nil
	case TypeExpenseSync:
		if m.Expense == nil {
			return fmt.Errorf("%w: %s without expense", ErrInvalidMessage, m.Type)
		}
		if err := m.Expense.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return nil
	case TypeExpenseDelete:
		if strings.TrimSpace(m.ExpenseID) == "" {
			return fmt.Errorf("%w: %s without expense id", ErrInvalidMessage, m.Type)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, m.Type)
	}
}

// MessageFromJSON decodes and validates a delivery body.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
