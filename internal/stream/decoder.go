// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// EVENTS
// =============================================================================

// Kind is the status tag of a progress record.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Valid reports whether k is one of the known status tags.
func (k Kind) Valid() bool {
	switch k {
	case KindInfo, KindSuccess, KindError:
		return true
	}
	return false
}

// Event is one decoded progress record.
type Event struct {
	Kind    Kind
	Message string
}

// record is the wire shape of one line.
type record struct {
	Status  Kind    `json:"status"`
	Message *string `json:"message"`
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns byte fragments into an ordered sequence of Events.
// The zero value is ready to use. A Decoder is not safe for concurrent use;
// one stream is consumed by one goroutine.
type Decoder struct {
	carry     []byte
	dropped   int
	discarded int
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a fragment and returns the events completed by it.
// The fragment is copied; the caller may reuse its buffer.
func (d *Decoder) Feed(fragment []byte) []Event {
	if len(fragment) == 0 {
		return nil
	}
	d.carry = append(d.carry, fragment...)

	var events []Event
	start := 0
	for {
		i := bytes.IndexByte(d.carry[start:], '\n')
		if i < 0 {
			break
		}
		if ev, ok := d.parseLine(d.carry[start : start+i]); ok {
			events = append(events, ev)
		}
		start += i + 1
	}

	// Keep only the unterminated tail.
	d.carry = append(d.carry[:0], d.carry[start:]...)
	return events
}

// Finish signals end of stream. A well-formed stream always ends on a line
// boundary; a leftover tail is emitted only if it is a complete record and
// is discarded otherwise.
func (d *Decoder) Finish() []Event {
	tail := bytes.TrimSpace(d.carry)
	d.carry = nil
	if len(tail) == 0 {
		return nil
	}

	ev, ok := decodeRecord(tail)
	if !ok {
		d.discarded += len(tail)
		return nil
	}
	return []Event{ev}
}

// Dropped returns the number of complete lines that failed to decode.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Discarded returns the number of tail bytes thrown away by Finish.
func (d *Decoder) Discarded() int {
	return d.discarded
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (d *Decoder) Pending() int {
	return len(d.carry)
}

func (d *Decoder) parseLine(line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{}, false
	}
	ev, ok := decodeRecord(line)
	if !ok {
		d.dropped++
	}
	return ev, ok
}

func decodeRecord(line []byte) (Event, bool) {
	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Event{}, false
	}
	if !rec.Status.Valid() || rec.Message == nil {
		return Event{}, false
	}
	return Event{Kind: rec.Status, Message: *rec.Message}, true
}

// Decode is a convenience for whole bodies already in memory.
func Decode(body []byte) []Event {
	d := NewDecoder()
	events := d.Feed(body)
	return append(events, d.Finish()...)
}
