package capture

import (
	"time"

	"github.com/google/uuid"
)

// Parity classifies a plate by the last digit of its number block.
type Parity string

const (
	ParityOdd           Parity = "ODD"
	ParityEven          Parity = "EVEN"
	ParityIndeterminate Parity = "INDETERMINATE"
)

// RestrictionClass is what the schedule restricts on a given calendar date.
type RestrictionClass string

const (
	OddRestricted  RestrictionClass = "ODD_RESTRICTED"
	EvenRestricted RestrictionClass = "EVEN_RESTRICTED"
	NoRestriction  RestrictionClass = "NONE"
)

type Verdict string

const (
	VerdictViolation    Verdict = "VIOLATION"
	VerdictCompliant    Verdict = "COMPLIANT"
	VerdictUndetermined Verdict = "UNDETERMINED"
)

// Plate is the canonical form of an OCR'd plate number: letter block,
// digit block, letter block, per the national convention. RawText keeps
// whatever the OCR adapter returned, for audit. An invalid plate has
// Valid=false and an empty Text.
type Plate struct {
	Text          string `json:"text"`
	RawText       string `json:"raw_text"`
	Valid         bool   `json:"valid"`
	Substitutions int    `json:"substitutions,omitempty"`
	Ambiguous     bool   `json:"ambiguous,omitempty"`
}

// Region is one candidate plate location reported by the detector.
type Region struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Extraction is the OCR adapter's answer for a cropped region.
type Extraction struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// CaptureEvent holds everything the pipeline learned about one submitted
// image. Immutable once built; owned by the pipeline run that produced it.
type CaptureEvent struct {
	ImageRef           string
	CaptureTime        time.Time
	Region             *Region
	RawText            string
	DetectorConfidence float64
	OCRConfidence      float64
	RawDetectorPayload map[string]interface{}
}

// FailureReason records which pipeline stage degraded a capture to
// UNDETERMINED. Empty when the plate was read successfully.
type FailureReason string

const (
	FailureNone           FailureReason = ""
	FailureDetectionEmpty FailureReason = "DETECTION_EMPTY"
	FailureExtraction     FailureReason = "EXTRACTION_FAILED"
	FailureInvalidPlate   FailureReason = "INVALID_PLATE_GRAMMAR"
)

// DecisionRecord is the append-only outcome of one processed capture. The
// restricted class in force on the capture date is frozen in so later
// schedule edits never rewrite history.
type DecisionRecord struct {
	ID                 uuid.UUID              `json:"id"`
	Plate              string                 `json:"plate,omitempty"`
	PlateRaw           string                 `json:"plate_raw,omitempty"`
	PlateAmbiguous     bool                   `json:"plate_ambiguous,omitempty"`
	Parity             Parity                 `json:"parity"`
	CaptureDate        time.Time              `json:"capture_date"`
	RestrictedClass    RestrictionClass       `json:"restricted_class"`
	Verdict            Verdict                `json:"verdict"`
	FailureReason      FailureReason          `json:"failure_reason,omitempty"`
	DetectorConfidence float64                `json:"detector_confidence"`
	OCRConfidence      float64                `json:"ocr_confidence"`
	ImageRef           string                 `json:"image_ref,omitempty"`
	RawPayload         map[string]interface{} `json:"raw_payload,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}

// DayBreakdown is one row of a report: verdict counts for a single date.
type DayBreakdown struct {
	Date         time.Time `json:"date"`
	Violations   int       `json:"violations"`
	Compliant    int       `json:"compliant"`
	Undetermined int       `json:"undetermined"`
}

// ReportResult is recomputed per query, never persisted.
type ReportResult struct {
	TotalRecords      int            `json:"total_records"`
	TotalViolations   int            `json:"total_violations"`
	TotalCompliant    int            `json:"total_compliant"`
	TotalUndetermined int            `json:"total_undetermined"`
	Days              []DayBreakdown `json:"days"`
}
