package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"oddeven-service/internal/domain/capture"
)

// DecisionRepository is the append-only store of pipeline outcomes. There
// is deliberately no update or delete on this type: records are history.
type DecisionRepository struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewDecisionRepository(db *gorm.DB, log zerolog.Logger) *DecisionRepository {
	return &DecisionRepository{db: db, log: log}
}

// DecisionRecord is the decision_records row. The restricted class and
// verdict are frozen at append time; reports never re-derive them.
type DecisionRecord struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Plate              *string
	PlateRaw           *string
	PlateAmbiguous     bool
	Parity             string    `gorm:"not null"`
	CaptureDate        time.Time `gorm:"type:date;not null;index"`
	RestrictedClass    string    `gorm:"not null"`
	Verdict            string    `gorm:"not null;index"`
	FailureReason      *string
	DetectorConfidence *float64
	OCRConfidence      *float64
	ImageRef           *string
	RawPayload         datatypes.JSON
	CreatedAt          time.Time
}

func (DecisionRecord) TableName() string { return "decision_records" }

// Append persists one record. Once it returns nil the record is visible to
// every later QueryRange whose window covers its date. Storage errors are
// surfaced as-is; the caller may retry with the same computed record.
func (r *DecisionRepository) Append(ctx context.Context, rec *capture.DecisionRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	row := DecisionRecord{
		ID:              rec.ID,
		PlateAmbiguous:  rec.PlateAmbiguous,
		Parity:          string(rec.Parity),
		CaptureDate:     dateOnly(rec.CaptureDate),
		RestrictedClass: string(rec.RestrictedClass),
		Verdict:         string(rec.Verdict),
		CreatedAt:       rec.CreatedAt,
	}
	if rec.Plate != "" {
		row.Plate = &rec.Plate
	}
	if rec.PlateRaw != "" {
		row.PlateRaw = &rec.PlateRaw
	}
	if rec.FailureReason != capture.FailureNone {
		reason := string(rec.FailureReason)
		row.FailureReason = &reason
	}
	if rec.DetectorConfidence != 0 {
		row.DetectorConfidence = &rec.DetectorConfidence
	}
	if rec.OCRConfidence != 0 {
		row.OCRConfidence = &rec.OCRConfidence
	}
	if rec.ImageRef != "" {
		row.ImageRef = &rec.ImageRef
	}
	if len(rec.RawPayload) > 0 {
		payload, err := json.Marshal(rec.RawPayload)
		if err != nil {
			return uuid.Nil, fmt.Errorf("marshal raw payload: %w", err)
		}
		row.RawPayload = payload
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("append decision record: %w", err)
	}
	return row.ID, nil
}

// QueryRange returns every record whose capture date falls inside the
// inclusive [start, end] window, ordered by capture date then creation
// order.
func (r *DecisionRepository) QueryRange(ctx context.Context, start, end time.Time) ([]capture.DecisionRecord, error) {
	var rows []DecisionRecord
	err := r.db.WithContext(ctx).
		Where("capture_date >= ? AND capture_date <= ?", dateOnly(start), dateOnly(end)).
		Order("capture_date ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query decision records: %w", err)
	}

	records := make([]capture.DecisionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, r.toDomain(row))
	}
	return records, nil
}

func (r *DecisionRepository) toDomain(row DecisionRecord) capture.DecisionRecord {
	rec := capture.DecisionRecord{
		ID:              row.ID,
		PlateAmbiguous:  row.PlateAmbiguous,
		Parity:          capture.Parity(row.Parity),
		CaptureDate:     row.CaptureDate,
		RestrictedClass: capture.RestrictionClass(row.RestrictedClass),
		Verdict:         capture.Verdict(row.Verdict),
		CreatedAt:       row.CreatedAt,
	}
	if row.Plate != nil {
		rec.Plate = *row.Plate
	}
	if row.PlateRaw != nil {
		rec.PlateRaw = *row.PlateRaw
	}
	if row.FailureReason != nil {
		rec.FailureReason = capture.FailureReason(*row.FailureReason)
	}
	if row.DetectorConfidence != nil {
		rec.DetectorConfidence = *row.DetectorConfidence
	}
	if row.OCRConfidence != nil {
		rec.OCRConfidence = *row.OCRConfidence
	}
	if row.ImageRef != nil {
		rec.ImageRef = *row.ImageRef
	}
	if len(row.RawPayload) > 0 {
		if err := json.Unmarshal(row.RawPayload, &rec.RawPayload); err != nil {
			// The record itself is still usable; only the audit blob is
			// unreadable.
			r.log.Warn().
				Err(err).
				Str("record_id", row.ID.String()).
				Msg("corrupt raw payload on decision record")
		}
	}
	return rec
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
