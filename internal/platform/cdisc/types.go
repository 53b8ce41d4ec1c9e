// Package cdisc generates CDISC regulatory export artifacts (SDTM
// tabulation domains, ODM metadata, ADaM analysis datasets, Define.xml)
// from study data. Generators are pure: they read the snapshot handed to
// them and never touch a datastore.
package cdisc

import (
	"time"

	"github.com/google/uuid"
)

// Domain is an SDTM domain code.
type Domain string

const (
	DomainDM Domain = "DM" // Demographics
	DomainQS Domain = "QS" // Questionnaires
	DomainDS Domain = "DS" // Disposition
	DomainAE Domain = "AE" // Adverse Events
	DomainCM Domain = "CM" // Concomitant Medications
	DomainVS Domain = "VS" // Vital Signs
	DomainLB Domain = "LB" // Laboratory Test Results
)

var knownDomains = map[Domain]bool{
	DomainDM: true, DomainQS: true, DomainDS: true,
	DomainAE: true, DomainCM: true, DomainVS: true, DomainLB: true,
}

// Format selects the export artifact family.
type Format string

const (
	FormatODM  Format = "ODM"
	FormatSDTM Format = "SDTM"
	FormatADaM Format = "ADaM"
)

// ExportRequest is the orchestrator input. Consumed once, never mutated.
type ExportRequest struct {
	StudyID          uuid.UUID `json:"studyId"`
	Format           Format    `json:"format"`
	Domains          []Domain  `json:"domains,omitempty"`
	IncludeMetadata  bool      `json:"includeMetadata,omitempty"`
	IncludeDefineXML bool      `json:"includeDefineXML,omitempty"`
}

// StudyInfo is the study header the generators need: the tabulation
// identifier, the display name, and the protocol number.
type StudyInfo struct {
	ID         uuid.UUID
	Identifier string // STUDYID value in every row
	Name       string
	Protocol   string
}

// Subject is one participant as the generators see it.
type Subject struct {
	ID             string
	SubjectID      string // USUBJID basis
	DateOfBirth    *time.Time
	Gender         *string
	Arm            *string
	Country        *string
	EnrollmentDate *time.Time
	CompletionDate *time.Time
	Status         string
}

// ResponseItem is one flattened (question key, stringified value) pair,
// in the submission order of the response document.
type ResponseItem struct {
	Key   string
	Value string
}

// Response is one questionnaire response as the generators see it.
type Response struct {
	ParticipantID string
	Title         string
	SubmittedAt   *time.Time
	Items         []ResponseItem
}

// StudyData is the full snapshot an export runs against.
type StudyData struct {
	Study     StudyInfo
	Subjects  []Subject
	Responses []Response
}

// Artifact is the assembled export output. Exactly one of Domains, ODM,
// Datasets is set, depending on the requested format.
type Artifact struct {
	Domains   map[Domain]interface{} `json:"domains,omitempty"`
	ODM       *ODM                   `json:"odm,omitempty"`
	Datasets  *Datasets              `json:"datasets,omitempty"`
	Metadata  *Metadata              `json:"metadata,omitempty"`
	DefineXML string                 `json:"defineXML,omitempty"`
}

// Metadata is the optional export summary block.
type Metadata struct {
	StudyID          uuid.UUID `json:"studyId"`
	StudyName        string    `json:"studyName"`
	Protocol         string    `json:"protocol"`
	ExportDate       string    `json:"exportDate"`
	Format           Format    `json:"format"`
	Domains          []Domain  `json:"domains"`
	ParticipantCount int       `json:"participantCount"`
	ResponseCount    int       `json:"responseCount"`
}
