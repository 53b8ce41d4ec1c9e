// Package fhir carries the FHIR R4 building blocks shared by the REST
// surface and the export pipeline: common datatypes, Bundle assembly and
// parsing, OperationOutcome helpers, and a thin client for external
// FHIR servers.
package fhir

import (
	"fmt"
	"time"
)

// Coding is a FHIR Coding datatype.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept is a FHIR CodeableConcept datatype.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Reference is a FHIR Reference datatype.
type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Identifier is a FHIR Identifier datatype.
type Identifier struct {
	Use    string `json:"use,omitempty"`
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Meta is a FHIR Meta datatype.
type Meta struct {
	LastUpdated time.Time `json:"lastUpdated,omitempty"`
	Profile     []string  `json:"profile,omitempty"`
}

// HumanName is a FHIR HumanName datatype.
type HumanName struct {
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// ContactPoint is a FHIR ContactPoint datatype.
type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
}

// Period is a FHIR Period datatype.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// FormatReference renders a relative literal reference ("Patient/<id>").
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// OperationOutcome is the FHIR error envelope returned by /fhir routes.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// ErrorOutcome builds a single-issue processing OperationOutcome.
func ErrorOutcome(diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{Severity: "error", Code: "processing", Diagnostics: diagnostics},
		},
	}
}

// NotFoundOutcome builds the standard not-found OperationOutcome.
func NotFoundOutcome(resourceType, id string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{
				Severity:    "error",
				Code:        "not-found",
				Diagnostics: fmt.Sprintf("%s with id %q not found", resourceType, id),
			},
		},
	}
}
