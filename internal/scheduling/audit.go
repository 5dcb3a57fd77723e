package scheduling

import (
	"github.com/maralydev/revabrain-sub000/pkg/interfaces"
	"github.com/maralydev/revabrain-sub000/pkg/logger"
)

// LogAuditSink writes scheduling audit records to the structured log. Calls
// never return an error: a failing sink must not fail the operation it
// describes.
type LogAuditSink struct {
	logger *logger.Logger
}

// NewLogAuditSink creates a log-backed audit sink
func NewLogAuditSink(log *logger.Logger) interfaces.AuditSink {
	return &LogAuditSink{logger: log}
}

// Record emits one audit entry. Panics from the underlying writer are
// swallowed so auditing stays fire-and-forget.
func (s *LogAuditSink) Record(actorID, actionType, entityType, entityID, description string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warnf("Audit record dropped: %v", r)
		}
	}()

	s.logger.Audit(actorID, actionType, entityType, entityID, description)
}
