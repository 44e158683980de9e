package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"oddeven-service/internal/detector"
	"oddeven-service/internal/domain/capture"
	"oddeven-service/internal/ocr"
	"oddeven-service/internal/plate"
	"oddeven-service/internal/report"
	"oddeven-service/internal/repository"
	"oddeven-service/internal/rules"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrStorage      = errors.New("storage failure")
)

// CaptureInput is one submitted image plus its capture time.
type CaptureInput struct {
	Image       []byte
	ImageRef    string
	CaptureTime time.Time
}

// PipelineService runs a capture through detect → extract → normalize →
// resolve → evaluate → append. Every submitted image ends in exactly one
// stored record; extraction-path failures degrade to UNDETERMINED instead
// of dropping the event.
type PipelineService struct {
	repo      *repository.DecisionRepository
	detector  detector.Detector
	extractor ocr.TextExtractor
	schedules *rules.Registry
	log       zerolog.Logger
}

func NewPipelineService(
	repo *repository.DecisionRepository,
	det detector.Detector,
	extractor ocr.TextExtractor,
	schedules *rules.Registry,
	log zerolog.Logger,
) *PipelineService {
	return &PipelineService{
		repo:      repo,
		detector:  det,
		extractor: extractor,
		schedules: schedules,
		log:       log,
	}
}

func (s *PipelineService) ProcessCapture(ctx context.Context, in CaptureInput) (*capture.DecisionRecord, error) {
	if len(in.Image) == 0 {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}
	if in.CaptureTime.IsZero() {
		return nil, fmt.Errorf("%w: capture_time is required", ErrInvalidInput)
	}

	event := s.runExtraction(ctx, in)
	rec := s.decide(event)

	if _, err := s.repo.Append(ctx, rec); err != nil {
		s.log.Error().
			Err(err).
			Str("image_ref", in.ImageRef).
			Str("verdict", string(rec.Verdict)).
			Msg("failed to append decision record")
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.log.Info().
		Str("record_id", rec.ID.String()).
		Str("plate", rec.Plate).
		Str("parity", string(rec.Parity)).
		Str("restricted_class", string(rec.RestrictedClass)).
		Str("verdict", string(rec.Verdict)).
		Time("capture_date", rec.CaptureDate).
		Msg("capture processed")

	return rec, nil
}

// runExtraction drives the two adapter calls and collects whatever they
// produced into the capture event. It never fails: a missed detection or
// a dead OCR vendor leaves the raw text empty and the event still flows
// on to a decision.
func (s *PipelineService) runExtraction(ctx context.Context, in CaptureInput) *capture.CaptureEvent {
	event := &capture.CaptureEvent{
		ImageRef:    in.ImageRef,
		CaptureTime: in.CaptureTime,
	}

	regions, err := s.detector.Detect(ctx, in.Image)
	if err != nil {
		s.log.Warn().Err(err).Str("image_ref", in.ImageRef).Msg("detector call failed")
		event.RawDetectorPayload = map[string]interface{}{"detector_error": err.Error()}
		return event
	}
	if len(regions) == 0 {
		s.log.Debug().Str("image_ref", in.ImageRef).Msg("no plate region detected")
		return event
	}

	best := regions[0]
	event.Region = &best
	event.DetectorConfidence = best.Confidence
	event.RawDetectorPayload = map[string]interface{}{
		"region_count": len(regions),
		"best_region":  best,
	}

	extraction, err := s.extractor.ExtractText(ctx, in.Image, best)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("image_ref", in.ImageRef).
			Float64("detector_confidence", best.Confidence).
			Msg("text extraction failed")
		return event
	}

	event.RawText = extraction.Text
	event.OCRConfidence = extraction.Confidence
	return event
}

// decide turns a capture event into the record to append. The restricted
// class comes from the schedule snapshot in force right now and is frozen
// into the record.
func (s *PipelineService) decide(event *capture.CaptureEvent) *capture.DecisionRecord {
	restricted := s.schedules.Current().RestrictedClassFor(event.CaptureTime)

	rec := &capture.DecisionRecord{
		CaptureDate:        event.CaptureTime,
		RestrictedClass:    restricted,
		DetectorConfidence: event.DetectorConfidence,
		OCRConfidence:      event.OCRConfidence,
		ImageRef:           event.ImageRef,
		RawPayload:         event.RawDetectorPayload,
	}

	switch {
	case event.Region == nil:
		rec.Parity = capture.ParityIndeterminate
		rec.FailureReason = capture.FailureDetectionEmpty
	case event.RawText == "":
		rec.Parity = capture.ParityIndeterminate
		rec.FailureReason = capture.FailureExtraction
	default:
		p := plate.Normalize(event.RawText)
		rec.PlateRaw = p.RawText
		if !p.Valid {
			rec.Parity = capture.ParityIndeterminate
			rec.FailureReason = capture.FailureInvalidPlate
		} else {
			rec.Plate = p.Text
			rec.PlateAmbiguous = p.Ambiguous
			rec.Parity = plate.ResolveParity(p)
		}
	}

	rec.Verdict = rules.Evaluate(rec.Parity, restricted)
	return rec
}

// Records returns the stored decisions inside the inclusive date window.
func (s *PipelineService) Records(ctx context.Context, start, end time.Time) ([]capture.DecisionRecord, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}
	records, err := s.repo.QueryRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return records, nil
}

// RangeReport aggregates the window's records into per-day verdict counts.
func (s *PipelineService) RangeReport(ctx context.Context, start, end time.Time) (capture.ReportResult, error) {
	records, err := s.Records(ctx, start, end)
	if err != nil {
		return capture.ReportResult{}, err
	}
	return report.Aggregate(records), nil
}
