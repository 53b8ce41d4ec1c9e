package fhir

import (
	"context"
	"encoding/json"
)

// ResourceImporter persists a single bundle entry. Implementations return
// imported=false (and a nil error) for resource types they accept but do
// not store, so the caller can report them as skipped.
type ResourceImporter interface {
	ImportResource(ctx context.Context, resourceType string, resource json.RawMessage) (imported bool, err error)
}

// ImportResult summarizes a completed bundle import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ImportBundle parses raw as a bundle and persists its entries in order.
// The first entry that fails aborts the import: entries before it stay
// persisted, entries after it are never attempted, and the error reports
// the offending index and resource type.
func ImportBundle(ctx context.Context, imp ResourceImporter, raw []byte) (*ImportResult, error) {
	b, err := ParseBundle(raw)
	if err != nil {
		return nil, err
	}
	res := &ImportResult{}
	for i, entry := range b.Entry {
		rt := entry.ResourceType()
		if rt == "" {
			return nil, &ImportError{Index: i, ResourceType: "unknown", Err: errMissingResourceType}
		}
		imported, err := imp.ImportResource(ctx, rt, entry.Resource)
		if err != nil {
			return nil, &ImportError{Index: i, ResourceType: rt, Err: err}
		}
		if imported {
			res.Imported++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

var errMissingResourceType = &ParseError{Reason: "entry resource has no resourceType"}
