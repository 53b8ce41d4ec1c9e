package fhir

import "time"

// CapabilityStatement describes the server's FHIR surface for GET /fhir/metadata.
type CapabilityStatement struct {
	ResourceType string          `json:"resourceType"`
	Status       string          `json:"status"`
	Date         string          `json:"date"`
	Kind         string          `json:"kind"`
	FHIRVersion  string          `json:"fhirVersion"`
	Format       []string        `json:"format"`
	Rest         []CapabilityRest `json:"rest"`
}

type CapabilityRest struct {
	Mode     string               `json:"mode"`
	Resource []CapabilityResource `json:"resource"`
}

type CapabilityResource struct {
	Type        string               `json:"type"`
	Interaction []CapabilityInteract `json:"interaction,omitempty"`
	Operation   []CapabilityOp       `json:"operation,omitempty"`
}

type CapabilityInteract struct {
	Code string `json:"code"`
}

type CapabilityOp struct {
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// NewCapabilityStatement lists what this server actually serves: the study
// export operation and the bundle types it emits.
func NewCapabilityStatement() *CapabilityStatement {
	return &CapabilityStatement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Date:         time.Now().UTC().Format(time.RFC3339),
		Kind:         "instance",
		FHIRVersion:  "4.0.1",
		Format:       []string{"application/fhir+json"},
		Rest: []CapabilityRest{
			{
				Mode: "server",
				Resource: []CapabilityResource{
					{
						Type: "ResearchStudy",
						Operation: []CapabilityOp{
							{Name: "export"},
						},
					},
					{Type: "Patient"},
					{Type: "ResearchSubject"},
					{Type: "QuestionnaireResponse"},
				},
			},
		},
	}
}
