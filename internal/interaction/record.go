// Package interaction holds the append-only log of honeypot engagements.
// The log lives in process memory only: there is no eviction, no
// deduplication and no persistence, and it is lost on restart.
package interaction

import (
	"errors"
	"time"
)

// ErrNilRecord is returned by Append when given a nil record.
var ErrNilRecord = errors.New("interaction: nil record")

// Record is one engagement: what the caller sent, how it scored, and what
// the honeypot said back.
type Record struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	RemoteAddr string    `json:"ip"`
	Text       string    `json:"message"`
	RiskScore  int       `json:"risk_score"`
	RiskLevel  string    `json:"risk_level"`
	Triggers   []string  `json:"detected_triggers"`
	Reply      string    `json:"agent_reply_sent"`
}

// Log is the interface for the engagement log.
type Log interface {
	// Append adds r to the end of the log.
	Append(r *Record) error

	// List returns every record in insertion order.
	List() []Record

	// Len returns the number of records.
	Len() int
}
