// Package analysis parses the ingest service's response schema into an
// internal risk representation. The mapping is forward-compatible: category
// names this build does not recognize are preserved and bucketed instead of
// failing, so server-side schema evolution never takes the client down.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaVersion is the analysis response contract version this build speaks.
const SchemaVersion = "v1"

// Response is the parsed analysis service reply.
type Response struct {
	SchemaVersion string               `json:"schema_version"`
	RequestID     string               `json:"request_id"`
	ModelResults  []ModelResult        `json:"model_results"`
	Categories    []CategoryAssessment `json:"categories"`
}

// ModelResult is one model output from the analysis service.
type ModelResult struct {
	Model      string  `json:"model"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// CategoryAssessment is one risk category score in [0, 100].
type CategoryAssessment struct {
	Category string `json:"category"`
	Severity int    `json:"severity"`
}

// RiskLevel is the client-side risk abstraction.
type RiskLevel int

const (
	// RiskUnknown covers out-of-range severities and forward categories.
	RiskUnknown RiskLevel = iota
	// RiskLow maps severities 0-24.
	RiskLow
	// RiskMedium maps severities 25-49.
	RiskMedium
	// RiskHigh maps severities 50-79.
	RiskHigh
	// RiskCritical maps severities 80-100.
	RiskCritical
)

func (l RiskLevel) String() string {
	switch l {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	case RiskCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// RiskSignal is one mapped category for status projection. The original
// category name is kept even when unrecognized.
type RiskSignal struct {
	Category string
	Level    RiskLevel
}

// ContractViolationError indicates a malformed response: invalid JSON or
// blank mandatory fields. Distinct from unknown enum values, which map
// cleanly.
type ContractViolationError struct {
	Reason string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("analysis: contract violation: %s", e.Reason)
}

// Parse validates raw response bytes against the v1 contract.
func Parse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, &ContractViolationError{Reason: err.Error()}
	}
	if strings.TrimSpace(resp.SchemaVersion) == "" {
		return Response{}, &ContractViolationError{Reason: "schema_version is empty"}
	}
	if strings.TrimSpace(resp.RequestID) == "" {
		return Response{}, &ContractViolationError{Reason: "request_id is empty"}
	}
	return resp, nil
}

// MapRiskSignals converts category assessments into risk signals. Unknown
// category names pass through with severity-derived levels; out-of-range
// severities land in RiskUnknown rather than erroring.
func MapRiskSignals(resp Response) []RiskSignal {
	signals := make([]RiskSignal, 0, len(resp.Categories))
	for _, assessment := range resp.Categories {
		signals = append(signals, RiskSignal{
			Category: assessment.Category,
			Level:    severityToLevel(assessment.Severity),
		})
	}
	return signals
}

// HighestRisk reduces signals to the most severe level for status display.
func HighestRisk(signals []RiskSignal) RiskLevel {
	highest := RiskUnknown
	priority := func(l RiskLevel) int {
		switch l {
		case RiskLow:
			return 1
		case RiskMedium:
			return 2
		case RiskHigh:
			return 3
		case RiskCritical:
			return 4
		default:
			return 0
		}
	}
	for _, signal := range signals {
		if priority(signal.Level) > priority(highest) {
			highest = signal.Level
		}
	}
	return highest
}

func severityToLevel(severity int) RiskLevel {
	switch {
	case severity < 0:
		return RiskUnknown
	case severity <= 24:
		return RiskLow
	case severity <= 49:
		return RiskMedium
	case severity <= 79:
		return RiskHigh
	case severity <= 100:
		return RiskCritical
	default:
		return RiskUnknown
	}
}
