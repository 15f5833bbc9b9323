package tracking

import (
	"crypto/rand"
	"encoding/json"
	"time"
)

// PlaceholderImage is the fallback image reference used when a package has no
// real image associated. It is never deleted and never treated as managed.
const PlaceholderImage = "assets/placeholder.svg"

// trackingNumberLength is the length of auto-generated tracking numbers.
const trackingNumberLength = 10

// Package represents a tracked package. It is the aggregate root for the
// tracking context. Known fields are typed; any other attribute a client sends
// is carried verbatim in Extra and round-trips through the JSON document.
type Package struct {
	TrackingNumber string
	PackageImage   string
	Events         any
	IsGlobal       bool
	CreatedAt      time.Time
	Extra          map[string]any
}

// Event represents a single entry in a package's chronological event list
type Event struct {
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
	Location    string `json:"location"`
	Completed   bool   `json:"completed"`
}

// coreFields are the JSON keys owned by the typed part of Package
var coreFields = map[string]bool{
	"trackingNumber": true,
	"packageImage":   true,
	"events":         true,
	"isGlobal":       true,
	"createdAt":      true,
}

// NewPackage creates a user-created package. IsGlobal is always false for
// records created through the API; only seed data sets it.
func NewPackage(trackingNumber string, createdAt time.Time) *Package {
	return &Package{
		TrackingNumber: trackingNumber,
		PackageImage:   PlaceholderImage,
		IsGlobal:       false,
		CreatedAt:      createdAt,
		Extra:          make(map[string]any),
	}
}

// GenerateTrackingNumber returns a random 10-digit numeric string.
// Uniqueness is the caller's concern; no collision retry happens here.
func GenerateTrackingNumber() string {
	buf := make([]byte, trackingNumberLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read does not fail on supported platforms
		panic(err)
	}
	digits := make([]byte, trackingNumberLength)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits)
}

// NewCreatedEvent is the default event synthesized when a package is created
// without any events of its own.
func NewCreatedEvent(now time.Time) Event {
	return Event{
		Description: "Package created",
		Timestamp:   now.Format(time.RFC3339),
		Location:    "Origin facility",
		Completed:   true,
	}
}

// DecodeEvents interprets a raw events value coming from a request.
// A serialized string is deserialized into []Event; when that fails the raw
// value is returned unchanged. Structured lists are coerced into []Event where
// possible, otherwise kept as-is.
func DecodeEvents(raw any) (any, bool) {
	switch v := raw.(type) {
	case string:
		var events []Event
		if err := json.Unmarshal([]byte(v), &events); err != nil {
			return v, false
		}
		return events, true
	case []Event:
		return v, true
	case []any:
		data, err := json.Marshal(v)
		if err != nil {
			return v, false
		}
		var events []Event
		if err := json.Unmarshal(data, &events); err != nil {
			return v, false
		}
		return events, true
	default:
		return raw, false
	}
}

// EventCount reports the length of the events value when it holds a decoded
// list, or -1 when the value is raw (kept verbatim after a decode failure).
func EventCount(events any) int {
	switch v := events.(type) {
	case nil:
		return 0
	case []Event:
		return len(v)
	case []any:
		return len(v)
	default:
		return -1
	}
}

// Merge shallow-merges the supplied fields over the package. Supplied fields
// overwrite, unspecified fields are retained. The tracking number, creation
// timestamp and global flag are not client-writable.
func (p *Package) Merge(fields map[string]any) {
	for key, value := range fields {
		switch key {
		case "trackingNumber", "createdAt", "isGlobal":
			// immutable through the API
		case "packageImage":
			if s, ok := value.(string); ok {
				p.PackageImage = s
			}
		case "events":
			p.Events = value
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[key] = value
		}
	}
}

// MarshalJSON flattens the typed fields and the open attribute bag into a
// single JSON object.
func (p Package) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(p.Extra)+len(coreFields))
	for k, v := range p.Extra {
		if !coreFields[k] {
			doc[k] = v
		}
	}
	doc["trackingNumber"] = p.TrackingNumber
	doc["packageImage"] = p.PackageImage
	doc["events"] = p.Events
	doc["isGlobal"] = p.IsGlobal
	doc["createdAt"] = p.CreatedAt.Format(time.RFC3339)
	return json.Marshal(doc)
}

// UnmarshalJSON splits a JSON object into the typed fields and Extra.
// An events value that does not decode into []Event is kept raw, matching the
// pass-through semantics of the store document.
func (p *Package) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	p.Extra = make(map[string]any)
	for key, raw := range doc {
		switch key {
		case "trackingNumber":
			if err := json.Unmarshal(raw, &p.TrackingNumber); err != nil {
				return err
			}
		case "packageImage":
			if err := json.Unmarshal(raw, &p.PackageImage); err != nil {
				return err
			}
		case "isGlobal":
			if err := json.Unmarshal(raw, &p.IsGlobal); err != nil {
				return err
			}
		case "createdAt":
			var ts string
			if err := json.Unmarshal(raw, &ts); err != nil {
				return err
			}
			parsed, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return err
			}
			p.CreatedAt = parsed
		case "events":
			var events []Event
			if err := json.Unmarshal(raw, &events); err == nil {
				p.Events = events
				continue
			}
			var value any
			if err := json.Unmarshal(raw, &value); err != nil {
				return err
			}
			p.Events = value
		default:
			var value any
			if err := json.Unmarshal(raw, &value); err != nil {
				return err
			}
			p.Extra[key] = value
		}
	}
	return nil
}
