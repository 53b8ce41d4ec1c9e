package fhir

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Bundle is a FHIR R4 Bundle. Entries keep their resources as raw JSON so
// the bundle can carry any resource type without a schema for each.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource"`
}

// NewCollectionBundle assembles a type "collection" bundle from the given
// resources, in order. Each resource must marshal to a JSON object; its
// fullUrl is derived from resourceType and id when both are present.
func NewCollectionBundle(resources []interface{}) (*Bundle, error) {
	b := &Bundle{
		ResourceType: "Bundle",
		ID:           uuid.New().String(),
		Type:         "collection",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Entry:        make([]BundleEntry, 0, len(resources)),
	}
	for _, res := range resources {
		raw, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}
		b.Entry = append(b.Entry, BundleEntry{
			FullURL:  fullURLFor(raw),
			Resource: raw,
		})
	}
	return b, nil
}

func fullURLFor(raw json.RawMessage) string {
	var head struct {
		ResourceType string `json:"resourceType"`
		ID           string `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	if head.ResourceType == "" || head.ID == "" {
		return ""
	}
	return FormatReference(head.ResourceType, head.ID)
}

// ParseBundle decodes an incoming bundle document. It returns a *ParseError
// when the input is not valid JSON, is not a Bundle, or carries no entries.
// Individual entry resources are not schema-validated here.
func ParseBundle(raw []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Err: err}
	}
	if b.ResourceType != "Bundle" {
		return nil, &ParseError{Reason: "resourceType is not Bundle"}
	}
	if len(b.Entry) == 0 {
		return nil, &ParseError{Reason: "bundle has no entry"}
	}
	return &b, nil
}

// ResourceType extracts the resourceType of an entry's resource, or ""
// when the resource is absent or malformed.
func (e BundleEntry) ResourceType() string {
	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(e.Resource, &head); err != nil {
		return ""
	}
	return head.ResourceType
}
