// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/equiphub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds event logging configuration.
type Config struct {
	// Custody controls logging for custody transfer events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Custody string
	// Audit controls logging for audit session events. Same values.
	Audit string
}

// Logger provides convenience methods for recording custody events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new event Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.EquipmentID != nil {
		fields = append(fields, zap.String("equipment_id", event.EquipmentID.Hex()))
	}
	if event.AssignmentID != nil {
		fields = append(fields, zap.String("assignment_id", event.AssignmentID.Hex()))
	}
	if event.SessionID != nil {
		fields = append(fields, zap.String("session_id", event.SessionID.Hex()))
	}
	if event.DepartmentID != nil {
		fields = append(fields, zap.String("department_id", event.DepartmentID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("custody event", fields...)
	} else {
		l.zapLog.Warn("custody event", fields...)
	}
}

// Log records an event based on configuration. If the logger is nil, it is a
// no-op (allows tests to use a nil logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryCustody:
		setting = l.config.Custody
	case audit.CategoryAudit:
		setting = l.config.Audit
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store custody event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Custody transfer events ---

// TransferCreated logs the opening of a custody transfer.
func (l *Logger) TransferCreated(ctx context.Context, r *http.Request, actorID, assignmentID, equipmentID primitive.ObjectID, action string) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryCustody,
		EventType:    audit.EventTransferCreated,
		ActorID:      &actorID,
		AssignmentID: &assignmentID,
		EquipmentID:  &equipmentID,
		IP:           getClientIP(r),
		Success:      true,
		Details:      map[string]string{"action": action},
	})
}

// TransferApproved logs a single actor's approval. Complete marks the
// approval that flipped the transfer to approved.
func (l *Logger) TransferApproved(ctx context.Context, r *http.Request, actorID, assignmentID, equipmentID primitive.ObjectID, slot string, complete bool) {
	eventType := audit.EventTransferApproved
	if complete {
		eventType = audit.EventTransferFullyApproved
	}
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryCustody,
		EventType:    eventType,
		ActorID:      &actorID,
		AssignmentID: &assignmentID,
		EquipmentID:  &equipmentID,
		IP:           getClientIP(r),
		Success:      true,
		Details:      map[string]string{"slot": slot},
	})
}

// TransferRejected logs a rejection with its reason.
func (l *Logger) TransferRejected(ctx context.Context, r *http.Request, actorID, assignmentID, equipmentID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryCustody,
		EventType:    audit.EventTransferRejected,
		ActorID:      &actorID,
		AssignmentID: &assignmentID,
		EquipmentID:  &equipmentID,
		IP:           getClientIP(r),
		Success:      true,
		Details:      map[string]string{"reason": reason},
	})
}

// TransferReverted logs the unwinding of one actor's approval.
func (l *Logger) TransferReverted(ctx context.Context, r *http.Request, actorID, assignmentID, equipmentID primitive.ObjectID, slot string) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryCustody,
		EventType:    audit.EventTransferReverted,
		ActorID:      &actorID,
		AssignmentID: &assignmentID,
		EquipmentID:  &equipmentID,
		IP:           getClientIP(r),
		Success:      true,
		Details:      map[string]string{"slot": slot},
	})
}

// TransferRestored logs a rejected transfer being re-opened.
func (l *Logger) TransferRestored(ctx context.Context, r *http.Request, actorID, assignmentID, equipmentID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryCustody,
		EventType:    audit.EventTransferRestored,
		ActorID:      &actorID,
		AssignmentID: &assignmentID,
		EquipmentID:  &equipmentID,
		IP:           getClientIP(r),
		Success:      true,
	})
}

// --- Audit session events ---

// SessionEvent logs a session lifecycle event (started, resumed, paused,
// completed, cancelled).
func (l *Logger) SessionEvent(ctx context.Context, r *http.Request, eventType string, actorID, sessionID, departmentID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryAudit,
		EventType:    eventType,
		ActorID:      &actorID,
		SessionID:    &sessionID,
		DepartmentID: &departmentID,
		IP:           getClientIP(r),
		Success:      true,
	})
}

// EquipmentRelocated logs a confirmed relocation during an audit.
func (l *Logger) EquipmentRelocated(ctx context.Context, r *http.Request, actorID, sessionID, equipmentID primitive.ObjectID, from string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryAudit,
		EventType:   audit.EventEquipmentRelocated,
		ActorID:     &actorID,
		SessionID:   &sessionID,
		EquipmentID: &equipmentID,
		IP:          getClientIP(r),
		Success:     true,
		Details:     map[string]string{"from": from},
	})
}

// UnexpectedItem logs a declined relocation recorded as an unexpected find.
// The original department is the item's registered home at decline time.
func (l *Logger) UnexpectedItem(ctx context.Context, r *http.Request, actorID, sessionID primitive.ObjectID, assetTag, originalDepartment string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAudit,
		EventType: audit.EventUnexpectedItemFound,
		ActorID:   &actorID,
		SessionID: &sessionID,
		IP:        getClientIP(r),
		Success:   true,
		Details: map[string]string{
			"asset_tag":           assetTag,
			"original_department": originalDepartment,
		},
	})
}

// --- Admin events ---

// EquipmentRegistered logs a new item entering the registry.
func (l *Logger) EquipmentRegistered(ctx context.Context, r *http.Request, actorID, equipmentID primitive.ObjectID, assetTag string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventEquipmentRegistered,
		ActorID:     &actorID,
		EquipmentID: &equipmentID,
		IP:          getClientIP(r),
		Success:     true,
		Details:     map[string]string{"asset_tag": assetTag},
	})
}
