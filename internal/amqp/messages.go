package amqp

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"unidiary/internal/gateway"
)

// ChangeMessage announces one accepted mutation. Rows carry the authoritative
// stored rows for inserts and updates; Filters carry the delete selection.
type ChangeMessage struct {
	Table     gateway.Table     `json:"table"`
	Operation gateway.Operation `json:"operation"`
	Rows      []gateway.Row     `json:"rows,omitempty"`
	Filters   []gateway.Filter  `json:"filters,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func NewChangeMessage(change gateway.Change) *ChangeMessage {
	ts := change.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ChangeMessage{
		Table:     change.Table,
		Operation: change.Operation,
		Rows:      change.Rows,
		Filters:   change.Filters,
		Timestamp: ts,
	}
}

// Change converts the message back into the gateway's representation.
func (m *ChangeMessage) Change() gateway.Change {
	return gateway.Change{
		Table:     m.Table,
		Operation: m.Operation,
		Rows:      m.Rows,
		Filters:   m.Filters,
		At:        m.Timestamp,
	}
}

// RecordIDs lists the ids named by the message, from its rows or, for
// deletes, from id equality filters.
func (m *ChangeMessage) RecordIDs() []string {
	var ids []string
	for _, row := range m.Rows {
		if id, ok := row[gateway.ColumnID].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	for _, f := range m.Filters {
		if id, ok := f.Value.(string); ok && f.Column == gateway.ColumnID && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message. Numbers stay json.Number so money
// values keep their canonical form.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var msg ChangeMessage
	if err := dec.Decode(&msg); err != nil {
		return nil, err
	}
	if msg.Table == "" || msg.Operation == "" {
		return nil, errors.New("change message without table or operation")
	}
	return &msg, nil
}
