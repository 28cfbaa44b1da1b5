// Package flittrace reads the Garnet flit event log and replays it on a mesh.
package flittrace

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// DefaultPath is where the instrumented simulator writes the event log.
const DefaultPath = "traces/garnet_event_log.bin"

// Event statuses.
const (
	// StatusInjected is a flit entering the network at its source.
	StatusInjected = "RI"
	// StatusSwitchIn is a flit entering a router from an external link.
	StatusSwitchIn = "SI"
	// StatusRouterReceive is a flit received by a router.
	StatusRouterReceive = "RR"
	// StatusLinkStart is a flit starting to cross an internal link.
	StatusLinkStart = "ST"
	// StatusLinkTransit is a flit still crossing an internal link.
	StatusLinkTransit = "DT"
	// StatusEjected is a flit leaving the network.
	StatusEjected = "SE"
)

// Field numbers of the GarnetEvent message.
const (
	fieldTick     protowire.Number = 1
	fieldStatus   protowire.Number = 2
	fieldGlobalID protowire.Number = 3
	fieldPacketID protowire.Number = 4
	fieldID       protowire.Number = 5
	fieldSrc      protowire.Number = 6
	fieldDest     protowire.Number = 7
	fieldLinkID   protowire.Number = 8
)

// An Event is one record of the log. LinkID holds the router for SI and RR
// events and the link for ST and DT events.
type Event struct {
	Tick     uint64 `json:"tick"`
	Status   string `json:"status"`
	GlobalID int    `json:"global_id"`
	PacketID int    `json:"packet_id"`
	ID       int    `json:"id"`
	Src      int    `json:"src"`
	Dest     int    `json:"dest"`
	LinkID   int    `json:"link_id"`
}

var errBadMessage = errors.New("malformed event message")

// UnmarshalEvent decodes a GarnetEvent message. Unknown fields are skipped.
func UnmarshalEvent(b []byte) (Event, error) {
	e := Event{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, fmt.Errorf("%w: %v", errBadMessage, protowire.ParseError(n))
		}

		b = b[n:]

		switch {
		case num == fieldStatus && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return e, fmt.Errorf("%w: %v", errBadMessage, protowire.ParseError(n))
			}

			e.Status = string(v)
			b = b[n:]
		case typ == protowire.VarintType && num >= fieldTick && num <= fieldLinkID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("%w: %v", errBadMessage, protowire.ParseError(n))
			}

			e.setVarint(num, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return e, fmt.Errorf("%w: %v", errBadMessage, protowire.ParseError(n))
			}

			b = b[n:]
		}
	}

	return e, nil
}

func (e *Event) setVarint(num protowire.Number, v uint64) {
	switch num {
	case fieldTick:
		e.Tick = v
	case fieldGlobalID:
		e.GlobalID = int(int64(v))
	case fieldPacketID:
		e.PacketID = int(int64(v))
	case fieldID:
		e.ID = int(int64(v))
	case fieldSrc:
		e.Src = int(int64(v))
	case fieldDest:
		e.Dest = int(int64(v))
	case fieldLinkID:
		e.LinkID = int(int64(v))
	}
}

// AppendEvent encodes an event as a GarnetEvent message. Zero values are left
// out, as proto3 does.
func AppendEvent(b []byte, e Event) []byte {
	appendVarint := func(num protowire.Number, v uint64) {
		if v == 0 {
			return
		}

		b = protowire.AppendTag(b, num, protowire.VarintType)
		b = protowire.AppendVarint(b, v)
	}

	appendVarint(fieldTick, e.Tick)

	if e.Status != "" {
		b = protowire.AppendTag(b, fieldStatus, protowire.BytesType)
		b = protowire.AppendString(b, e.Status)
	}

	appendVarint(fieldGlobalID, uint64(int64(e.GlobalID)))
	appendVarint(fieldPacketID, uint64(int64(e.PacketID)))
	appendVarint(fieldID, uint64(int64(e.ID)))
	appendVarint(fieldSrc, uint64(int64(e.Src)))
	appendVarint(fieldDest, uint64(int64(e.Dest)))
	appendVarint(fieldLinkID, uint64(int64(e.LinkID)))

	return b
}
