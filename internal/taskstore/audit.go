package taskstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
)

// auditRecord is one append-only entry: a completed task's identity and
// completion time, correlated by a fresh uuid rather than reusing the
// caller-visible task id (which is only unique within its own kind).
type auditRecord struct {
	CorrelationID string    `json:"correlation_id"`
	TaskKind      string    `json:"task_kind"`
	TaskID        int       `json:"task_id"`
	VehicleID     int       `json:"vehicle_id"`
	CompletedAt   time.Time `json:"completed_at"`
}

// AuditLog appends a snappy-compressed JSON record per completed task.
// Each record is framed with its own length prefix so the file can be
// streamed back one record at a time without buffering the whole thing.
type AuditLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenAuditLog opens (creating if absent) the append-only audit file at
// path.
func OpenAuditLog(path string) (*AuditLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("taskstore: open audit log: %w", err)
	}
	return &AuditLog{file: f}, nil
}

// RecordCompletion appends one audit entry. Failures are returned, not
// swallowed: unlike event fan-out, the audit trail is not best-effort.
func (a *AuditLog) RecordCompletion(kind Kind, taskID, vehicleID int, completedAt time.Time) error {
	rec := auditRecord{
		CorrelationID: uuid.NewString(),
		TaskKind:      kind.String(),
		TaskID:        taskID,
		VehicleID:     vehicleID,
		CompletedAt:   completedAt,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("taskstore: marshal audit record: %w", err)
	}
	compressed := snappy.Encode(nil, raw)

	a.mu.Lock()
	defer a.mu.Unlock()

	var lenPrefix [4]byte
	putUint32(lenPrefix[:], uint32(len(compressed)))
	if _, err := a.file.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("taskstore: write audit length: %w", err)
	}
	if _, err := a.file.Write(compressed); err != nil {
		return fmt.Errorf("taskstore: write audit record: %w", err)
	}
	return nil
}

func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
