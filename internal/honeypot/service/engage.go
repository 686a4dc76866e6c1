// Package service contains the honeypot's request pipeline: score the
// message, pick a reply, and record the engagement.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/honeypot/internal/interaction"
	"github.com/jmerrifield20/honeypot/internal/threat"
	"go.uber.org/zap"
)

// replyPicker chooses a canned reply. *reply.Picker satisfies this interface.
type replyPicker interface {
	Pick(text string) string
}

// HoneypotService ties scoring, reply selection and the engagement log together.
type HoneypotService struct {
	scorer threat.Scorer
	picker replyPicker
	log    interaction.Log
	now    func() time.Time
	logger *zap.Logger
}

// NewHoneypotService creates a HoneypotService.
func NewHoneypotService(scorer threat.Scorer, picker replyPicker, log interaction.Log, logger *zap.Logger) *HoneypotService {
	return &HoneypotService{
		scorer: scorer,
		picker: picker,
		log:    log,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock overrides the time source used for record timestamps.
func (s *HoneypotService) SetClock(now func() time.Time) {
	s.now = now
}

// Engage processes one inbound message from remoteAddr and returns the
// record appended to the log.
func (s *HoneypotService) Engage(ctx context.Context, remoteAddr, text string) (*interaction.Record, error) {
	report, err := s.scorer.Score(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("score message: %w", err)
	}

	rec := &interaction.Record{
		ID:         uuid.New().String(),
		Timestamp:  s.now().UTC(),
		RemoteAddr: remoteAddr,
		Text:       text,
		RiskScore:  report.Score,
		RiskLevel:  report.Level,
		Triggers:   report.Triggers,
		Reply:      s.picker.Pick(text),
	}

	if err := s.log.Append(rec); err != nil {
		return nil, fmt.Errorf("append interaction: %w", err)
	}

	s.logger.Info("engaged",
		zap.String("id", rec.ID),
		zap.String("remote_addr", remoteAddr),
		zap.Int("risk_score", rec.RiskScore),
		zap.String("risk_level", rec.RiskLevel),
		zap.Strings("triggers", rec.Triggers),
	)
	return rec, nil
}

// Interactions returns the full engagement log in insertion order.
func (s *HoneypotService) Interactions() []interaction.Record {
	return s.log.List()
}
