package amqp

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"keuangan/internal/core"
)

// TransactionCreatedMessage announces a new transaction. The photo is never
// included, only whether one was attached. Sessions are identified by a
// hash so the cookie value never leaves the server.
type TransactionCreatedMessage struct {
	SessionRef  string    `json:"session_ref"`
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	HasPhoto    bool      `json:"has_photo"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTransactionCreatedMessage builds the event for tx in sessionID.
func NewTransactionCreatedMessage(sessionID string, tx core.Transaction) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		SessionRef:  SessionRef(sessionID),
		ID:          tx.ID,
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		Type:        string(tx.Type),
		Category:    string(tx.Category),
		HasPhoto:    tx.HasPhoto(),
		Date:        tx.Date,
		CreatedAt:   tx.CreatedAt,
		Timestamp:   time.Now(),
	}
}

// SessionRef is a short stable pseudonym for a session id.
func SessionRef(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:6])
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON parses a message body.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
