// Package resource defines the normalized idle-resource model for idler.
package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type is the kind of an idle resource.
type Type string

const (
	TypeCompute   Type = "COMPUTE"
	TypeManagedDB Type = "MANAGED_DB"
	TypeVolume    Type = "VOLUME"
	TypeSnapshot  Type = "SNAPSHOT"
)

// Types returns every resource type in canonical listing order.
func Types() []Type {
	return []Type{TypeCompute, TypeManagedDB, TypeVolume, TypeSnapshot}
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	switch t {
	case TypeCompute, TypeManagedDB, TypeVolume, TypeSnapshot:
		return true
	}
	return false
}

// ParseType parses a type name case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown resource type %q", s)
	}
	return t, nil
}

// Resource is one idle cloud item in unified format.
// It is rebuilt on every listing and never stored.
type Resource struct {
	ID     string
	Type   Type
	Name   string // Name tag, falls back to ID
	Region string
	State  string // provider lifecycle state, e.g. "stopped"

	// LastUsed is the creation/launch/start time reported by the provider.
	// It is a proxy for "idle since", not the last access time.
	LastUsed time.Time

	Cost    float64 // placeholder, always 0
	Details Details
}

// Details holds the type-specific attributes of a resource.
// Only the variants in this package implement it.
type Details interface {
	Type() Type
	isDetails()
}

// ComputeDetails are the extra attributes of a stopped compute instance.
type ComputeDetails struct {
	InstanceType string `json:"instanceType"`
}

// ManagedDBDetails are the extra attributes of a stopped database instance.
type ManagedDBDetails struct {
	InstanceType string `json:"instanceType"`
	Engine       string `json:"engine"`
}

// VolumeDetails are the extra attributes of an unattached block volume.
type VolumeDetails struct {
	VolumeSize int32  `json:"volumeSize"` // GB
	VolumeType string `json:"volumeType"`
}

// SnapshotDetails are the extra attributes of an owned snapshot.
type SnapshotDetails struct {
	SnapshotSize int32 `json:"snapshotSize"` // GB
}

func (ComputeDetails) Type() Type   { return TypeCompute }
func (ManagedDBDetails) Type() Type { return TypeManagedDB }
func (VolumeDetails) Type() Type    { return TypeVolume }
func (SnapshotDetails) Type() Type  { return TypeSnapshot }

func (ComputeDetails) isDetails()   {}
func (ManagedDBDetails) isDetails() {}
func (VolumeDetails) isDetails()    {}
func (SnapshotDetails) isDetails()  {}

var (
	ErrMissingID       = errors.New("resource id is empty")
	ErrUnknownType     = errors.New("unknown resource type")
	ErrDetailsMismatch = errors.New("details do not match resource type")
)

// Validate checks the resource invariants.
func (r Resource) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
	}
	if r.Details != nil && r.Details.Type() != r.Type {
		return fmt.Errorf("%w: %s resource with %s details", ErrDetailsMismatch, r.Type, r.Details.Type())
	}
	return nil
}

// wireResource is the JSON shape of a Resource.
type wireResource struct {
	ID       string          `json:"id"`
	Type     Type            `json:"type"`
	Name     string          `json:"name"`
	Region   string          `json:"region"`
	State    string          `json:"state"`
	LastUsed string          `json:"lastUsed"`
	Cost     float64         `json:"cost"`
	Details  json.RawMessage `json:"details,omitempty"`
}

// FormatTime renders a timestamp the way it travels on the wire.
// The zero time becomes an empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// MarshalJSON encodes the resource with only the keys of its details variant.
func (r Resource) MarshalJSON() ([]byte, error) {
	w := wireResource{
		ID:       r.ID,
		Type:     r.Type,
		Name:     r.Name,
		Region:   r.Region,
		State:    r.State,
		LastUsed: FormatTime(r.LastUsed),
		Cost:     r.Cost,
	}
	if r.Details != nil {
		raw, err := json.Marshal(r.Details)
		if err != nil {
			return nil, fmt.Errorf("marshal details: %w", err)
		}
		w.Details = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a resource, choosing the details variant by type.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var w wireResource
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
	}

	var lastUsed time.Time
	if w.LastUsed != "" {
		t, err := time.Parse(time.RFC3339, w.LastUsed)
		if err != nil {
			return fmt.Errorf("parse lastUsed: %w", err)
		}
		lastUsed = t
	}

	details, err := decodeDetails(w.Type, w.Details)
	if err != nil {
		return err
	}

	*r = Resource{
		ID:       w.ID,
		Type:     w.Type,
		Name:     w.Name,
		Region:   w.Region,
		State:    w.State,
		LastUsed: lastUsed,
		Cost:     w.Cost,
		Details:  details,
	}
	return nil
}

func decodeDetails(t Type, raw json.RawMessage) (Details, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var (
		d   Details
		err error
	)
	switch t {
	case TypeCompute:
		var v ComputeDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case TypeManagedDB:
		var v ManagedDBDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case TypeVolume:
		var v VolumeDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case TypeSnapshot:
		var v SnapshotDetails
		err = json.Unmarshal(raw, &v)
		d = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s details: %w", t, err)
	}
	return d, nil
}

// SourceResult is the outcome of one provider query.
type SourceResult struct {
	Provider  string
	Region    string
	Type      Type
	Resources []Resource
	Duration  time.Duration
	Err       error
}

// OK reports whether the query succeeded.
func (s SourceResult) OK() bool {
	return s.Err == nil
}

// Warning describes a source that failed while others succeeded.
type Warning struct {
	Type  Type   `json:"type"`
	Error string `json:"error"`
}

// Inventory is the merged result of one listing.
type Inventory struct {
	Resources []Resource
	Warnings  []Warning
	Sources   []SourceResult
}
