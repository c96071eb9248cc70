package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/store"
)

// DraftStore persists the in-progress answer map (and the absolute
// submission deadline) per (student, exam) pair, keyed exactly as
// exam_progress_{userId}_{examId}. Every Save is a full overwrite of
// the prior record; a corrupted record loads as an empty draft and is
// never surfaced as an error.
type DraftStore struct {
	kv     store.DurableKeyValueStore
	logger *slog.Logger
}

func NewDraftStore(kv store.DurableKeyValueStore, logger *slog.Logger) *DraftStore {
	return &DraftStore{
		kv:     kv,
		logger: logger,
	}
}

func draftKey(studentID string, examID uint) string {
	return fmt.Sprintf("exam_progress_%s_%d", studentID, examID)
}

func deadlineKey(studentID string, examID uint) string {
	return fmt.Sprintf("exam_deadline_%s_%d", studentID, examID)
}

func (d *DraftStore) Save(ctx context.Context, studentID string, examID uint, answers map[uint]string) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	if err := d.kv.Set(ctx, draftKey(studentID, examID), string(data)); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Load returns the saved answer map, or an empty map when no draft
// exists or the stored record does not parse.
func (d *DraftStore) Load(ctx context.Context, studentID string, examID uint) (map[uint]string, error) {
	raw, err := d.kv.Get(ctx, draftKey(studentID, examID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return map[uint]string{}, nil
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	answers := map[uint]string{}
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		d.logger.Warn("Corrupt draft record, treating as empty",
			"student_id", studentID,
			"exam_id", examID,
			"error", err)
		return map[uint]string{}, nil
	}
	return answers, nil
}

func (d *DraftStore) Clear(ctx context.Context, studentID string, examID uint) error {
	if err := d.kv.Remove(ctx, draftKey(studentID, examID)); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// SaveDeadline records the absolute submission deadline so that a
// resumed session recomputes remaining time instead of restarting from
// the full duration.
func (d *DraftStore) SaveDeadline(ctx context.Context, studentID string, examID uint, deadline time.Time) error {
	if err := d.kv.Set(ctx, deadlineKey(studentID, examID), deadline.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save deadline: %w", err)
	}
	return nil
}

// LoadDeadline returns the persisted deadline, reporting found=false
// when none exists or the record does not parse.
func (d *DraftStore) LoadDeadline(ctx context.Context, studentID string, examID uint) (time.Time, bool, error) {
	raw, err := d.kv.Get(ctx, deadlineKey(studentID, examID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to load deadline: %w", err)
	}

	deadline, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		d.logger.Warn("Corrupt deadline record, ignoring",
			"student_id", studentID,
			"exam_id", examID,
			"error", err)
		return time.Time{}, false, nil
	}
	return deadline, true, nil
}

func (d *DraftStore) ClearDeadline(ctx context.Context, studentID string, examID uint) error {
	if err := d.kv.Remove(ctx, deadlineKey(studentID, examID)); err != nil {
		return fmt.Errorf("failed to clear deadline: %w", err)
	}
	return nil
}
