// Package sse implements the provider-agnostic Server-Sent-Events framer
// (spec component C1): it turns raw byte chunks from an HTTP response body
// into discrete SSE records, tolerating the line-ending and spacing quirks
// of the four streaming dialects this module consumes.
package sse

import (
	"strings"
	"unicode/utf8"
)

// Event is one parsed SSE record. EventType may be empty — an SSE record
// with no "event:" line is valid and carries only Data.
type Event struct {
	EventType string
	Data      string
}

// Framer incrementally decodes a byte stream into Events. It is not safe for
// concurrent use; one Framer belongs to exactly one stream for its lifetime
// (see spec §3 Ownership — the framer never outlives the turn that owns it).
type Framer struct {
	buf strings.Builder
}

// New returns an empty Framer ready to accept bytes via Feed.
func New() *Framer {
	return &Framer{}
}

// Feed decodes chunk as text (lossily replacing invalid UTF-8), normalizes
// line endings, appends it to the internal buffer, and returns every
// complete record terminated so far by a blank line ("\n\n"). Any trailing
// partial record remains buffered for the next Feed or for Flush.
func (f *Framer) Feed(chunk []byte) []Event {
	f.buf.WriteString(toValidText(chunk))

	buffered := f.buf.String()
	normalized := normalizeNewlines(buffered)

	var events []Event
	for {
		idx := strings.Index(normalized, "\n\n")
		if idx < 0 {
			break
		}
		record := normalized[:idx]
		normalized = normalized[idx+2:]
		if ev, ok := parseRecord(record); ok {
			events = append(events, ev)
		}
	}

	f.buf.Reset()
	f.buf.WriteString(normalized)
	return events
}

// Flush parses any remaining buffered bytes as one final record. Some SSE
// producers omit the terminating blank line on the last record of a
// response; Flush recovers that record. The Framer's buffer is empty after
// Flush returns, whether or not a record was produced.
func (f *Framer) Flush() []Event {
	remaining := strings.TrimSpace(f.buf.String())
	f.buf.Reset()
	if remaining == "" {
		return nil
	}
	if ev, ok := parseRecord(remaining); ok {
		return []Event{ev}
	}
	return nil
}

// toValidText decodes b as UTF-8, replacing invalid sequences with the
// Unicode replacement character rather than failing.
func toValidText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

// normalizeNewlines rewrites "\r\n" and bare "\r" to "\n" before the buffer
// is scanned for line/record boundaries.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// parseRecord parses one SSE record's lines into an Event. Lines that match
// neither the "event:"/"event: " nor "data:"/"data: " prefixes are ignored. A record
// whose EventType and Data both end up empty is dropped (ok=false).
func parseRecord(record string) (Event, bool) {
	var ev Event
	var dataLines []string

	for _, line := range strings.Split(record, "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.EventType = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "event:"):
			ev.EventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case strings.HasPrefix(line, "data:"):
			// No space after the colon: producers that omit it still start
			// the payload at column 5 (immediately after "data:").
			dataLines = append(dataLines, strings.TrimPrefix(line, "data:"))
		default:
			// id:, retry:, comments, blank lines within the record: ignored.
		}
	}

	if len(dataLines) > 0 {
		ev.Data = strings.Join(dataLines, "\n")
	}

	if ev.EventType == "" && ev.Data == "" {
		return Event{}, false
	}
	return ev, true
}
