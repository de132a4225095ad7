package aprs

import (
	"fmt"

	fap "github.com/martinhpedersen/libfap-go"
)

// FapDecoder decodes packets with libfap. libfap handles the full zoo of
// APRS formats (mic-e, compressed, objects, messages); we only trust the
// fields we can re-validate.
type FapDecoder struct{}

// NewFapDecoder returns the default production decoder.
func NewFapDecoder() *FapDecoder {
	return &FapDecoder{}
}

// Decode runs libfap over one raw TNC2-format line.
func (d *FapDecoder) Decode(raw string) (*Decoded, error) {
	p, err := fap.ParseAprs(raw, false)
	if err != nil {
		return nil, fmt.Errorf("libfap parse: %w", err)
	}

	dec := &Decoded{
		From:        p.SrcCallsign,
		To:          p.DstCallsign,
		Format:      "unknown",
		SymbolTable: p.SymbolTable,
		SymbolCode:  p.SymbolCode,
		Comment:     p.Comment,
	}

	if p.Latitude != nil && p.Longitude != nil {
		lat, lon := *p.Latitude, *p.Longitude
		dec.Lat, dec.Lon = &lat, &lon
		dec.Format = "position"
	}

	if p.ObjectOrItemName != nil && *p.ObjectOrItemName != "" {
		dec.ObjectName = *p.ObjectOrItemName
		dec.Format = "object"
	}

	// libfap fills at least one of these for message-type packets.
	if p.Message != nil || p.MessageAck != nil || p.MessageNack != nil {
		dec.Format = "message"
		if p.Message != nil {
			dec.MessageText = *p.Message
		}
		if p.MessageAck != nil {
			dec.AckID = *p.MessageAck
		}
		if p.MessageID != nil {
			dec.MessageID = *p.MessageID
		}
		// The addressee is re-extracted from the info field by the parser;
		// libfap stores it in DstCallsign only for third-party traffic.
	}

	return dec, nil
}
