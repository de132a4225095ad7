// Package aprs turns raw APRS-IS packet lines into structured facts.
//
// Primary decoding is delegated to a third-party APRS decoder; because the
// decoder can fail or partially fail (compressed positions especially),
// every derived field is independently re-validated before it is allowed
// into a fact.
package aprs

// LatLon is a validated WGS84 coordinate pair.
type LatLon struct {
	Lat float64
	Lon float64
}

// Fact is the structured result of parsing one raw packet line.
// Exactly one concrete type is produced per packet.
type Fact interface {
	aprsFact()
}

// StationReport is a fact about some other station: a position beacon, an
// object report relayed by a gateway, or an unrecognized packet that still
// identifies its sender. The registry applies these with a sticky merge.
type StationReport struct {
	// Callsign is the station's real identity. For object packets this is
	// the embedded object name, not the transmitting gateway.
	Callsign string

	// Destination is the AX.25 TO field, informational only.
	Destination string

	// Position is nil when the packet carried no valid coordinates.
	Position *LatLon

	// Comment is the free-text portion; empty comments never overwrite.
	Comment string

	// SymbolTable and SymbolCode identify the map icon.
	SymbolTable byte
	SymbolCode  byte

	// Format is the packet category: "position", "object" or "unknown".
	Format string

	// IsObject marks fixed infrastructure relayed by a gateway. Object
	// stations are excluded from track history.
	IsObject bool

	// Gateway is the relaying station's callsign, set only for objects.
	Gateway string

	// Raw is the original packet text, kept for diagnostics.
	Raw string
}

// MessageReceived is a genuine inbound text message addressed to us.
type MessageReceived struct {
	From      string
	To        string
	Text      string
	MessageID string
}

// MessageAck acknowledges one of our outbound messages. It updates the
// ledger entry's status and is never inserted as a new message.
type MessageAck struct {
	From      string
	MessageID string
}

// OwnPosition is a position packet from our own callsign heard back on the
// feed. It feeds the adaptive filter, never the station registry.
type OwnPosition struct {
	Lat float64
	Lon float64
}

// Unrecognized covers packets we deliberately drop: malformed lines,
// messages addressed to somebody else, our own non-position packets.
type Unrecognized struct {
	Raw string
}

func (*StationReport) aprsFact()   {}
func (*MessageReceived) aprsFact() {}
func (*MessageAck) aprsFact()      {}
func (*OwnPosition) aprsFact()     {}
func (*Unrecognized) aprsFact()    {}
