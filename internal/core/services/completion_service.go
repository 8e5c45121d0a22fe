package services

import (
	"math"

	"fingate-portal/internal/core/domain"
)

// RequirementStatus reports whether one required document type is satisfied
// by a currently confirmed document.
type RequirementStatus struct {
	DocType   string `json:"doc_type"`
	Satisfied bool   `json:"satisfied"`
}

// CompletionReport is the result of the requirement completion computation
type CompletionReport struct {
	Items     []RequirementStatus `json:"items"`
	Required  int                 `json:"required"`
	Satisfied int                 `json:"satisfied"`
	Percent   int                 `json:"percent"`
}

// ComputeCompletion reports, for each required document type, whether a
// confirmed document of that type is present, plus an overall percentage.
// Pure computation: no network I/O, recomputed whenever the document list
// for the application changes.
func ComputeCompletion(required []string, documents []*domain.Document) *CompletionReport {
	confirmed := make(map[string]bool, len(documents))
	for _, doc := range documents {
		if doc.Status == domain.DocumentConfirmed {
			confirmed[doc.DocType] = true
		}
	}

	report := &CompletionReport{
		Items:    make([]RequirementStatus, 0, len(required)),
		Required: len(required),
	}

	for _, docType := range required {
		satisfied := confirmed[docType]
		if satisfied {
			report.Satisfied++
		}
		report.Items = append(report.Items, RequirementStatus{
			DocType:   docType,
			Satisfied: satisfied,
		})
	}

	// Nothing required means nothing missing
	if report.Required == 0 {
		report.Percent = 100
		return report
	}

	percent := int(math.Round(100 * float64(report.Satisfied) / float64(report.Required)))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	report.Percent = percent

	return report
}
