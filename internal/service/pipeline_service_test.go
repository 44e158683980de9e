package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"oddeven-service/internal/domain/capture"
	"oddeven-service/internal/repository"
	"oddeven-service/internal/rules"
)

type fakeDetector struct {
	regions []capture.Region
	err     error
}

func (f *fakeDetector) Detect(ctx context.Context, image []byte) ([]capture.Region, error) {
	return f.regions, f.err
}

type fakeExtractor struct {
	text       string
	confidence float64
	err        error
}

func (f *fakeExtractor) ExtractText(ctx context.Context, image []byte, region capture.Region) (capture.Extraction, error) {
	if f.err != nil {
		return capture.Extraction{}, f.err
	}
	return capture.Extraction{Text: f.text, Confidence: f.confidence}, nil
}

// Monday 2024-01-01, configured below as odd-restricted.
var monday = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, det *fakeDetector, ext *fakeExtractor, exceptions ...string) *PipelineService {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&repository.DecisionRecord{}))

	schedule, err := rules.NewSchedule("test", map[string]string{
		"monday":  "odd",
		"tuesday": "even",
	}, exceptions)
	require.NoError(t, err)

	return NewPipelineService(
		repository.NewDecisionRepository(gdb, zerolog.Nop()),
		det,
		ext,
		rules.NewRegistry(schedule),
		zerolog.Nop(),
	)
}

func goodRegion() []capture.Region {
	return []capture.Region{{X: 10, Y: 20, Width: 120, Height: 40, Confidence: 0.92}}
}

func TestProcessCaptureCompliant(t *testing.T) {
	p := newTestPipeline(t,
		&fakeDetector{regions: goodRegion()},
		&fakeExtractor{text: "b 1234 xyz", confidence: 0.88},
	)

	rec, err := p.ProcessCapture(context.Background(), CaptureInput{
		Image:       []byte("jpeg"),
		ImageRef:    "cam-1/0001.jpg",
		CaptureTime: monday,
	})
	require.NoError(t, err)

	assert.Equal(t, "B1234XYZ", rec.Plate)
	assert.Equal(t, capture.ParityEven, rec.Parity)
	assert.Equal(t, capture.OddRestricted, rec.RestrictedClass)
	assert.Equal(t, capture.VerdictCompliant, rec.Verdict)
	assert.Equal(t, capture.FailureNone, rec.FailureReason)
	assert.InDelta(t, 0.92, rec.DetectorConfidence, 1e-9)
	assert.InDelta(t, 0.88, rec.OCRConfidence, 1e-9)
}

func TestProcessCaptureViolation(t *testing.T) {
	p := newTestPipeline(t,
		&fakeDetector{regions: goodRegion()},
		&fakeExtractor{text: "B1235XYZ", confidence: 0.95},
	)

	rec, err := p.ProcessCapture(context.Background(), CaptureInput{
		Image:       []byte("jpeg"),
		CaptureTime: monday,
	})
	require.NoError(t, err)

	assert.Equal(t, capture.ParityOdd, rec.Parity)
	assert.Equal(t, capture.VerdictViolation, rec.Verdict)
}

func TestProcessCaptureExceptionDay(t *testing.T) {
	p := newTestPipeline(t,
		&fakeDetector{regions: goodRegion()},
		&fakeExtractor{text: "B1235XYZ", confidence: 0.95},
		"2024-01-01",
	)

	rec, err := p.ProcessCapture(context.Background(), CaptureInput{
		Image:       []byte("jpeg"),
		CaptureTime: monday,
	})
	require.NoError(t, err)

	assert.Equal(t, capture.NoRestriction, rec.RestrictedClass)
	assert.Equal(t, capture.VerdictCompliant, rec.Verdict)
}

func TestProcessCaptureNoRegion(t *testing.T) {
	p := newTestPipeline(t, &fakeDetector{}, &fakeExtractor{})

	rec, err := p.ProcessCapture(context.Background(), CaptureInput{
		Image:       []byte("jpeg"),
		CaptureTime: monday,
	})
	require.NoError(t, err)

	assert.Equal(t, capture.ParityIndeterminate, rec.Parity)
	assert.Equal(t, capture.VerdictUndetermined, rec.Verdict)
	assert.Equal(t, capture.FailureDetectionEmpty, rec.FailureReason)
}

func TestProcessCaptureExtractionFailure(t *testing.T) {
	p := newTestPipeline(t,
		&fakeDetector{regions: goodRegion()},
		&fakeExtractor{err: errors.New("vendor timeout")},
	)

	rec, err := p.ProcessCapture(context.Background(), CaptureInput{
		Image:       []byte("jpeg"),
		CaptureTime: monday,
	})
	require.NoError(t, err)

	assert.Equal(t, capture.VerdictUndetermined, rec.Verdict)
	assert.Equal(t, capture.FailureExtraction, rec.FailureReason)
	// The detector's work is still retained for audit.
	assert.InDelta(t, 0.92, rec.DetectorConfidence, 1e-9)
}

func TestProcessCaptureInvalidGrammar(t *testing.T) {
	p := newTestPipeline(t,
		&fakeDetector{regions: goodRegion()},
		&fakeExtractor{text: "###", confidence: 0.4},
	)

	rec, err := p.ProcessCapture(context.Background(), CaptureInput{
		Image:       []byte("jpeg"),
		CaptureTime: monday,
	})
	require.NoError(t, err)

	assert.Empty(t, rec.Plate)
	assert.Equal(t, "###", rec.PlateRaw)
	assert.Equal(t, capture.VerdictUndetermined, rec.Verdict)
	assert.Equal(t, capture.FailureInvalidPlate, rec.FailureReason)
}

func TestProcessCaptureValidatesInput(t *testing.T) {
	p := newTestPipeline(t, &fakeDetector{}, &fakeExtractor{})

	_, err := p.ProcessCapture(context.Background(), CaptureInput{CaptureTime: monday})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.ProcessCapture(context.Background(), CaptureInput{Image: []byte("jpeg")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScheduleSwapDoesNotRewriteHistory(t *testing.T) {
	p := newTestPipeline(t,
		&fakeDetector{regions: goodRegion()},
		&fakeExtractor{text: "B1235XYZ", confidence: 0.95},
	)

	rec, err := p.ProcessCapture(context.Background(), CaptureInput{
		Image:       []byte("jpeg"),
		CaptureTime: monday,
	})
	require.NoError(t, err)
	require.Equal(t, capture.VerdictViolation, rec.Verdict)

	// Monday becomes a free day after the fact.
	updated, err := rules.NewSchedule("v2", map[string]string{"monday": "none"}, nil)
	require.NoError(t, err)
	p.schedules.Swap(updated)

	stored, err := p.Records(context.Background(), monday, monday)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, capture.VerdictViolation, stored[0].Verdict)
	assert.Equal(t, capture.OddRestricted, stored[0].RestrictedClass)
}

func TestRangeReport(t *testing.T) {
	det := &fakeDetector{regions: goodRegion()}
	ext := &fakeExtractor{text: "B1235XYZ", confidence: 0.95}
	p := newTestPipeline(t, det, ext)

	tuesday := monday.AddDate(0, 0, 1)

	_, err := p.ProcessCapture(context.Background(), CaptureInput{Image: []byte("a"), CaptureTime: monday})
	require.NoError(t, err)

	ext.text = "b 1234 xyz"
	_, err = p.ProcessCapture(context.Background(), CaptureInput{Image: []byte("b"), CaptureTime: monday})
	require.NoError(t, err)

	_, err = p.ProcessCapture(context.Background(), CaptureInput{Image: []byte("c"), CaptureTime: tuesday})
	require.NoError(t, err)

	result, err := p.RangeReport(context.Background(), monday, tuesday)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 2, result.TotalViolations)
	assert.Equal(t, 1, result.TotalCompliant)
	require.Len(t, result.Days, 2)
	assert.Equal(t, 1, result.Days[0].Violations)
	assert.Equal(t, 1, result.Days[0].Compliant)
	assert.Equal(t, 1, result.Days[1].Violations)
}

func TestRangeReportEmptyWindow(t *testing.T) {
	p := newTestPipeline(t, &fakeDetector{}, &fakeExtractor{})

	result, err := p.RangeReport(context.Background(), monday, monday.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Zero(t, result.TotalRecords)
	assert.Empty(t, result.Days)
}

func TestRecordsRejectsInvertedRange(t *testing.T) {
	p := newTestPipeline(t, &fakeDetector{}, &fakeExtractor{})

	_, err := p.Records(context.Background(), monday, monday.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
