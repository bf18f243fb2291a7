package cli

import (
	"encoding/hex"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/canopy-network/canopy/lib/cosi"
)

// NewLogger returns a development logger when verbose, a production one
// otherwise. Both write to stderr so command output stays clean.
func NewLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// AuditLogger writes audit events through zap
type AuditLogger struct {
	log *zap.Logger
}

var _ cosi.AuditEventHandler = (*AuditLogger)(nil)

// NewAuditLogger returns an audit handler logging to log
func NewAuditLogger(log *zap.Logger) *AuditLogger {
	return &AuditLogger{log: log.Named("audit")}
}

func (a *AuditLogger) OnSessionEvent(event *cosi.AuditEvent) {
	level := zapcore.DebugLevel
	if !event.Success {
		level = zapcore.WarnLevel
	}
	a.write(level, event)
}

func (a *AuditLogger) OnCeremonyFinalized(event *cosi.AuditEvent) {
	a.write(zapcore.InfoLevel, event)
}

func (a *AuditLogger) OnVerificationFailure(event *cosi.AuditEvent) {
	a.write(zapcore.WarnLevel, event)
}

func (a *AuditLogger) write(level zapcore.Level, event *cosi.AuditEvent) {
	ce := a.log.Check(level, string(event.EventType))
	if ce == nil {
		return
	}

	fields := []zap.Field{
		zap.String("event_id", event.EventID),
		zap.Time("timestamp", event.Timestamp),
		zap.Bool("success", event.Success),
	}
	if event.SessionID != "" {
		fields = append(fields, zap.String("session_id", event.SessionID), zap.Uint32("counter", event.Counter))
	}
	if len(event.Digest) > 0 {
		fields = append(fields, zap.String("digest", hex.EncodeToString(event.Digest)))
	}
	if event.SignerKey != "" {
		fields = append(fields, zap.String("signer", event.SignerKey))
	}
	if event.SignerMask != 0 {
		fields = append(fields, zap.Uint8("mask", uint8(event.SignerMask)), zap.Int("signers", event.SignerCount))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	ce.Write(fields...)
}
