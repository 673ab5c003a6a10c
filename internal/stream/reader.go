// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
)

const defaultBufferSize = 4096

// Callback is called for each event, synchronously and in arrival order.
type Callback func(ev Event)

// Reader pulls fragments from an io.Reader and feeds a Decoder.
type Reader struct {
	src io.Reader
	dec *Decoder
	buf []byte
}

// NewReader creates a stream reader from an io.Reader.
func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, defaultBufferSize)
}

// NewReaderSize creates a stream reader that reads at most size bytes at a time.
func NewReaderSize(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Reader{
		src: r,
		dec: NewDecoder(),
		buf: make([]byte, size),
	}
}

// Decoder exposes the underlying decoder, mainly for its counters.
func (r *Reader) Decoder() *Decoder {
	return r.dec
}

// Process reads the stream and calls the callback for each event.
// Blocks until end of stream, a read error, or context cancellation.
// Returns nil at end of stream. Once ctx is done no further callbacks run.
func (r *Reader) Process(ctx context.Context, callback Callback) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			for _, ev := range r.dec.Feed(r.buf[:n]) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				callback(ev)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				for _, ev := range r.dec.Finish() {
					callback(ev)
				}
				return nil
			}
			return err
		}
	}
}
