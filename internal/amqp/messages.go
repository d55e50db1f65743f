package amqp

import (
	"encoding/json"
	"time"

	"corpdash/internal/audit"
)

// EventUploadProcessed is the message type and default routing key.
const EventUploadProcessed = "upload.processed"

// UploadProcessedMessage announces the outcome of one upload. It carries
// counts only, never the uploaded rows.
type UploadProcessedMessage struct {
	Type           string    `json:"type"`
	SessionID      string    `json:"session_id"`
	Filename       string    `json:"filename"`
	SizeBytes      int64     `json:"size_bytes"`
	Outcome        string    `json:"outcome"`
	RowsRead       int       `json:"rows_read"`
	RowsKept       int       `json:"rows_kept"`
	RowsDropped    int       `json:"rows_dropped"`
	MissingColumns []string  `json:"missing_columns,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewUploadProcessedMessage builds the message for e.
func NewUploadProcessedMessage(e audit.Event) *UploadProcessedMessage {
	return &UploadProcessedMessage{
		Type:           EventUploadProcessed,
		SessionID:      e.SessionID,
		Filename:       e.Filename,
		SizeBytes:      e.SizeBytes,
		Outcome:        string(e.Outcome),
		RowsRead:       e.RowsRead,
		RowsKept:       e.RowsKept,
		RowsDropped:    e.RowsDropped,
		MissingColumns: e.MissingColumns,
		Error:          e.Error,
		Timestamp:      e.At,
	}
}

func (m *UploadProcessedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func UploadProcessedMessageFromJSON(data []byte) (*UploadProcessedMessage, error) {
	var msg UploadProcessedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Event converts the message back into an audit event.
func (m *UploadProcessedMessage) Event() audit.Event {
	return audit.Event{
		SessionID:      m.SessionID,
		Filename:       m.Filename,
		SizeBytes:      m.SizeBytes,
		Outcome:        audit.Outcome(m.Outcome),
		RowsRead:       m.RowsRead,
		RowsKept:       m.RowsKept,
		RowsDropped:    m.RowsDropped,
		MissingColumns: m.MissingColumns,
		Error:          m.Error,
		At:             m.Timestamp,
	}
}
