package flittrace

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var (
	// ErrTruncated is returned when the log ends in the middle of a record.
	// The events before the broken record are still returned.
	ErrTruncated = errors.New("truncated event log")

	// ErrEmptyTrace is returned when a log holds no events.
	ErrEmptyTrace = errors.New("no events in trace")
)

const maxRecordSize = 1 << 24

// A Decoder reads length-prefixed events from a stream. Each record is a
// 4-byte little-endian length followed by the message.
type Decoder struct {
	r       *bufio.Reader
	skipped int
}

// NewDecoder creates a decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Skipped returns the number of records that could not be decoded.
func (d *Decoder) Skipped() int {
	return d.skipped
}

// Next returns the next event. It returns io.EOF at the end of the log and
// ErrTruncated when the last record is incomplete. Records that do not decode
// are skipped.
func (d *Decoder) Next() (Event, error) {
	for {
		var prefix [4]byte

		_, err := io.ReadFull(d.r, prefix[:])
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}

		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Event{}, fmt.Errorf("%w: partial length prefix", ErrTruncated)
		}

		if err != nil {
			return Event{}, err
		}

		size := binary.LittleEndian.Uint32(prefix[:])
		if size > maxRecordSize {
			return Event{}, fmt.Errorf("%w: record of %d bytes", ErrTruncated, size)
		}

		msg := make([]byte, size)

		n, err := io.ReadFull(d.r, msg)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Event{}, fmt.Errorf("%w: expected %d bytes, got %d",
				ErrTruncated, size, n)
		}

		if err != nil {
			return Event{}, err
		}

		e, err := UnmarshalEvent(msg)
		if err != nil {
			d.skipped++
			slog.Warn("skipping event", "error", err)

			continue
		}

		return e, nil
	}
}

// ReadEvents reads all events of a log.
func ReadEvents(r io.Reader) ([]Event, error) {
	d := NewDecoder(r)
	events := []Event{}

	for {
		e, err := d.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}

		if err != nil {
			return events, err
		}

		events = append(events, e)
	}
}

// ReadFile reads all events of a log file.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadEvents(f)
}

// WriteEvents writes events in the log format.
func WriteEvents(w io.Writer, events []Event) error {
	bw := bufio.NewWriter(w)

	for _, e := range events {
		msg := AppendEvent(nil, e)

		var prefix [4]byte
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(msg)))

		if _, err := bw.Write(prefix[:]); err != nil {
			return err
		}

		if _, err := bw.Write(msg); err != nil {
			return err
		}
	}

	return bw.Flush()
}
