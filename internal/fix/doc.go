// Package fix implements the tag=value wire encoding used by FIX-style
// session protocols.
//
// A message is an ordered sequence of integer-tagged string fields. On the
// wire, fields are joined by the SOH byte (0x01), the frame opens with
// BeginString (8) and BodyLength (9), and closes with CheckSum (10):
//
//	8=FIX.4.4|9=58|35=D|34=2|49=INJECTOR|56=EXCHANGE|11=abc|10=127|
//
// # Encoding
//
// [Encode] performs the two-pass serialization: the body is rendered first,
// BodyLength is computed from it, and CheckSum is the mod-256 sum of every
// byte that precedes the checksum field. Field order is the caller's; no
// content validation is applied beyond requiring BeginString.
//
// # Decoding
//
// [Decode] splits a frame back into ordered fields and reports the exact
// number of bytes consumed. Structural problems (a field without '=', a
// non-numeric tag, a missing CheckSum terminator) surface as [*FramingError].
// Checksum and BodyLength values are not verified; correlation-driven
// injection only needs well-formed field boundaries.
//
// # Stream framing
//
// [FrameLength] locates the end of the first complete frame in a read
// buffer, letting a stream consumer cut frames before decoding:
//
//	if n, ok := fix.FrameLength(buf); ok {
//		msg, _, err := fix.Decode(buf[:n])
//		buf = buf[n:]
//	}
//
// The package is pure: no I/O, no logging, no session state.
package fix
