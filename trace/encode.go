package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"lark/kernel"
)

// Wire format: a 12-byte header followed by fixed 8-byte records, all
// little-endian.
//
//	offset 0  magic   "LTRC"
//	offset 4  version u16
//	offset 6  reserved u16
//	offset 8  count   u32
//
// Each record is tick u32, kind u8, task u8, arg u16.

const (
	magic       = "LTRC"
	wireVersion = 1
	recordSize  = 8
	headerSize  = 12
)

var (
	// ErrBadMagic reports a stream that is not a trace capture.
	ErrBadMagic = errors.New("trace: bad magic")
	// ErrBadVersion reports a capture from an incompatible writer.
	ErrBadVersion = errors.New("trace: unsupported version")
)

// Encode writes the events as one capture.
func Encode(w io.Writer, events []kernel.Event) error {
	var hdr [headerSize]byte
	copy(hdr[:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:6], wireVersion)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(events)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	var rec [recordSize]byte
	for _, ev := range events {
		binary.LittleEndian.PutUint32(rec[0:4], uint32(ev.Tick))
		rec[4] = byte(ev.Kind)
		rec[5] = ev.Task
		binary.LittleEndian.PutUint16(rec[6:8], ev.Arg)
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}

// EncodeRing writes the ring's current contents as one capture.
func EncodeRing(w io.Writer, r *Ring) error {
	return Encode(w, r.Snapshot())
}

// Decode reads one capture back.
func Decode(r io.Reader) ([]kernel.Event, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[:4]) != magic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != wireVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	count := binary.LittleEndian.Uint32(hdr[8:12])

	// The header's count is untrusted input; cap the preallocation so a
	// corrupt capture cannot demand gigabytes up front. The slice still
	// grows to the real record count.
	capHint := count
	if capHint > 1<<16 {
		capHint = 1 << 16
	}
	events := make([]kernel.Event, 0, capHint)
	var rec [recordSize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, fmt.Errorf("trace: record %d: %w", i, err)
		}
		events = append(events, kernel.Event{
			Tick: kernel.Tick(binary.LittleEndian.Uint32(rec[0:4])),
			Kind: kernel.EventKind(rec[4]),
			Task: rec[5],
			Arg:  binary.LittleEndian.Uint16(rec[6:8]),
		})
	}
	return events, nil
}
