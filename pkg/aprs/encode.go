package aprs

import (
	"fmt"
	"math"
)

// MaxMessageLen is the APRS limit for outbound message text.
const MaxMessageLen = 67

// FormatMessage builds the outbound message packet:
// <ourCall>>APRS,TCPIP*::<toCall padded to 9>:<text>{<messageId>}
func FormatMessage(ourCall, toCall, text, messageID string) string {
	padded := fmt.Sprintf("%-9.9s", NormalizeCall(toCall))
	return fmt.Sprintf("%s>APRS,TCPIP*::%s:%s{%s}", NormalizeCall(ourCall), padded, text, messageID)
}

// FormatAck builds the acknowledgment packet for a received message id.
func FormatAck(ourCall, toCall, messageID string) string {
	padded := fmt.Sprintf("%-9.9s", NormalizeCall(toCall))
	return fmt.Sprintf("%s>APRS,TCPIP*::%s:ack%s", NormalizeCall(ourCall), padded, messageID)
}

// FormatPosition builds an uncompressed position beacon packet:
// <ourCall>>APRS,TCPIP*:=DDMM.mmN<T>DDDMM.mmE<S><comment>
func FormatPosition(ourCall string, lat, lon float64, symTable, symCode byte, comment string) string {
	info := fmt.Sprintf("=%s%c%s%c%s", latToDMM(lat), symTable, lonToDMM(lon), symCode, comment)
	return fmt.Sprintf("%s>APRS,TCPIP*:%s", NormalizeCall(ourCall), info)
}

// FormatLogin builds the APRS-IS login line. radiusKM <= 0 omits the
// filter clause (used by the ephemeral send-only path).
func FormatLogin(call, pass, version string, lat, lon, radiusKM float64) string {
	login := fmt.Sprintf("user %s pass %s vers PawPrint %s", NormalizeCall(call), pass, version)
	if radiusKM > 0 {
		login += fmt.Sprintf(" filter r/%.2f/%.2f/%.0f", lat, lon, radiusKM)
	}
	return login
}

// FormatFilter builds the in-session subscription change line.
func FormatFilter(lat, lon, radiusKM float64) string {
	return fmt.Sprintf("#filter r/%.4f/%.4f/%.0f", lat, lon, radiusKM)
}

// latToDMM renders latitude as DDMM.mmN fixed-width APRS text.
func latToDMM(lat float64) string {
	hemi := "N"
	if lat < 0 {
		hemi = "S"
	}
	deg := int(math.Abs(lat))
	min := (math.Abs(lat) - float64(deg)) * 60
	return fmt.Sprintf("%02d%05.2f%s", deg, min, hemi)
}

// lonToDMM renders longitude as DDDMM.mmE fixed-width APRS text.
func lonToDMM(lon float64) string {
	hemi := "E"
	if lon < 0 {
		hemi = "W"
	}
	deg := int(math.Abs(lon))
	min := (math.Abs(lon) - float64(deg)) * 60
	return fmt.Sprintf("%03d%05.2f%s", deg, min, hemi)
}
