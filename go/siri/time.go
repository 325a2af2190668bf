package siri

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// Timestamp is a SIRI date-time, RFC 3339 on the wire.
type Timestamp struct {
	time.Time
}

// NewTimestamp returns a Timestamp pointer, convenient for optional fields.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

func (t Timestamp) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(t.Format(time.RFC3339), start)
}

func (t *Timestamp) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Some producers omit the zone offset.
		parsed, err = time.ParseInLocation("2006-01-02T15:04:05", raw, time.Local)
		if err != nil {
			return fmt.Errorf("parsing timestamp %q: %w", raw, err)
		}
	}
	t.Time = parsed
	return nil
}

// Duration is a SIRI duration, ISO 8601 on the wire (PT60S, PT12H).
type Duration time.Duration

func (d Duration) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(formatISODuration(time.Duration(d)), start)
}

func (d *Duration) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	var raw string
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return err
	}
	parsed, err := parseISODuration(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// formatISODuration renders d in whole seconds, the resolution SIRI peers
// expect for heartbeat and preview intervals.
func formatISODuration(d time.Duration) string {
	var seconds = int64(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("PT%dS", seconds)
}

// parseISODuration understands the PnDTnHnMnS subset produced by SIRI peers.
// Fractional seconds are truncated.
func parseISODuration(raw string) (time.Duration, error) {
	var rest = strings.ToUpper(raw)
	if !strings.HasPrefix(rest, "P") {
		return 0, fmt.Errorf("parsing duration %q: missing P designator", raw)
	}
	rest = rest[1:]

	var out time.Duration
	var inTime bool
	var components int
	var num strings.Builder

	for _, r := range rest {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9' || r == '.':
			num.WriteRune(r)
		default:
			var value float64
			if _, err := fmt.Sscanf(num.String(), "%f", &value); err != nil {
				return 0, fmt.Errorf("parsing duration %q: %w", raw, err)
			}
			num.Reset()
			components++

			switch {
			case r == 'D':
				out += time.Duration(value) * 24 * time.Hour
			case r == 'H' && inTime:
				out += time.Duration(value) * time.Hour
			case r == 'M' && inTime:
				out += time.Duration(value) * time.Minute
			case r == 'S' && inTime:
				out += time.Duration(value * float64(time.Second))
			default:
				return 0, fmt.Errorf("parsing duration %q: unexpected designator %q", raw, r)
			}
		}
	}
	if num.Len() != 0 {
		return 0, fmt.Errorf("parsing duration %q: trailing number", raw)
	}
	if components == 0 {
		return 0, fmt.Errorf("parsing duration %q: no components", raw)
	}
	return out, nil
}
