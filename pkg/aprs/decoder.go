package aprs

// Decoded is the decoder-neutral view of one packet. Pointer fields are nil
// when the decoder could not derive them; everything here is re-validated
// by the parser before it reaches a Fact.
type Decoded struct {
	From string
	To   string

	// Format is "position", "object", "message" or "unknown".
	Format string

	Lat *float64
	Lon *float64

	SymbolTable byte
	SymbolCode  byte
	Comment     string

	// ObjectName is the embedded identity for object/item packets.
	ObjectName string

	// Message fields. AckID is non-empty when the packet acknowledges one
	// of the addressee's messages.
	Addressee   string
	MessageText string
	MessageID   string
	AckID       string
}

// Decoder is the primary third-party packet decoder. Implementations may
// fail outright or return partially-populated results; the parser treats
// both as recoverable and falls back to direct info-field extraction.
type Decoder interface {
	Decode(raw string) (*Decoded, error)
}
