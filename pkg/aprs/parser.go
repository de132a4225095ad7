package aprs

import (
	"strings"

	"github.com/ki9ng/PawPrint/pkg/geo"
)

// Parser classifies raw packet lines into Facts. It is safe for concurrent
// use; all state is read-only after construction.
type Parser struct {
	ownCall string
	dec     Decoder
}

// NewParser builds a parser for the given node callsign. ownCall packets
// are diverted to OwnPosition facts and never become station reports.
func NewParser(ownCall string, dec Decoder) *Parser {
	return &Parser{
		ownCall: NormalizeCall(ownCall),
		dec:     dec,
	}
}

// NormalizeCall upper-cases and trims a callsign for use as a registry key.
func NormalizeCall(call string) string {
	return strings.ToUpper(strings.TrimSpace(call))
}

// Parse turns one raw line of the form FROM>TO,PATH:INFO into a Fact.
// Decoder failures are recovered by direct info-field extraction; a packet
// is only ever dropped as Unrecognized, never as an error.
func (p *Parser) Parse(raw string) Fact {
	raw = strings.TrimSpace(raw)
	gt := strings.Index(raw, ">")
	if raw == "" || gt <= 0 {
		return &Unrecognized{Raw: raw}
	}

	dec, err := p.dec.Decode(raw)
	if err != nil || dec == nil {
		dec = &Decoded{Format: "unknown"}
	}
	if dec.Format == "" {
		dec.Format = "unknown"
	}

	from := NormalizeCall(dec.From)
	if from == "" {
		from = NormalizeCall(raw[:gt])
	}

	info := ""
	if i := strings.Index(raw, ":"); i >= 0 {
		info = raw[i+1:]
	}

	// Object packets use the transmitting gateway as FROM, but the real
	// station identity is the object name embedded in the info field,
	// e.g. WINLINK>APWL2K,...:;W9ML-10  *... keys the station W9ML-10.
	// When the decoder missed the object line, the 9 characters after the
	// leading ';' are the name.
	objectName := strings.TrimSpace(dec.ObjectName)
	if objectName == "" && strings.HasPrefix(info, ";") {
		end := 10
		if len(info) < end {
			end = len(info)
		}
		objectName = strings.TrimSpace(info[1:end])
	}
	isObject := objectName != ""
	gateway := ""
	if isObject {
		gateway = from
		from = NormalizeCall(objectName)
	}

	if dec.Format == "message" {
		return p.parseMessage(raw, from, info, dec)
	}

	// Position, decoder-first with re-validation. Compressed packets can
	// occasionally yield out-of-range values on partial parse failures.
	var pos *LatLon
	symTable, symCode := dec.SymbolTable, dec.SymbolCode
	if dec.Lat != nil && dec.Lon != nil && geo.ValidLatLon(*dec.Lat, *dec.Lon) {
		pos = &LatLon{Lat: *dec.Lat, Lon: *dec.Lon}
	} else if lat, lon, ok := ParsePosition(info); ok {
		pos = &LatLon{Lat: lat, Lon: lon}
		symTable, symCode = ExtractSymbol(info)
	}
	if symTable == 0 {
		symTable = '/'
	}
	if symCode == 0 {
		symCode = '>'
	}

	// Our own beacons heard back on the feed update own position and the
	// adaptive filter; they never clutter the station registry.
	if from == p.ownCall {
		if pos != nil {
			return &OwnPosition{Lat: pos.Lat, Lon: pos.Lon}
		}
		return &Unrecognized{Raw: raw}
	}

	format := dec.Format
	if isObject {
		format = "object"
	}

	return &StationReport{
		Callsign:    from,
		Destination: dec.To,
		Position:    pos,
		Comment:     dec.Comment,
		SymbolTable: symTable,
		SymbolCode:  symCode,
		Format:      format,
		IsObject:    isObject,
		Gateway:     gateway,
		Raw:         raw,
	}
}

// parseMessage handles message-format packets: acknowledgements update an
// outbound ledger entry and are never shown; only genuine text addressed to
// us becomes a MessageReceived.
func (p *Parser) parseMessage(raw, from, info string, dec *Decoded) Fact {
	addressee := NormalizeCall(dec.Addressee)
	if addressee == "" && strings.HasPrefix(info, ":") && len(info) >= 11 && info[10] == ':' {
		addressee = NormalizeCall(info[1:10])
	}

	text := dec.MessageText
	ackID := dec.AckID
	if ackID == "" && strings.HasPrefix(text, "ack") && len(text) > 3 {
		ackID = text[3:]
	}

	if ackID != "" {
		return &MessageAck{From: from, MessageID: ackID}
	}

	if addressee == p.ownCall && text != "" && !strings.HasPrefix(text, "ack") {
		return &MessageReceived{
			From:      from,
			To:        p.ownCall,
			Text:      text,
			MessageID: dec.MessageID,
		}
	}

	// Message traffic for somebody else; not ours to record.
	return &Unrecognized{Raw: raw}
}
