package fix

import (
	"bytes"
	"fmt"
	"strconv"
)

// Encode serializes m into a complete frame. The body (every field except
// BeginString, BodyLength, and CheckSum) is rendered first in the caller's
// order, then the frame is assembled as 8=..., 9=<body bytes>, body,
// 10=<sum%256> with the checksum zero-padded to three digits. The only
// validation is that BeginString (8) is present and non-empty.
func Encode(m *Message) ([]byte, error) {
	begin, ok := m.Get(TagBeginString)
	if !ok || begin == "" {
		return nil, &ProtocolError{Reason: "message has no BeginString (8)"}
	}

	var body bytes.Buffer
	for _, f := range m.fields {
		switch f.Tag {
		case TagBeginString, TagBodyLength, TagCheckSum:
			continue
		}
		body.WriteString(strconv.Itoa(f.Tag))
		body.WriteByte('=')
		body.WriteString(f.Value)
		body.WriteByte(SOH)
	}

	var frame bytes.Buffer
	frame.Grow(body.Len() + 32)
	fmt.Fprintf(&frame, "8=%s%c9=%d%c", begin, SOH, body.Len(), SOH)
	frame.Write(body.Bytes())
	fmt.Fprintf(&frame, "10=%03d%c", Checksum(frame.Bytes()), SOH)
	return frame.Bytes(), nil
}

// Decode parses one frame from the start of data and returns the message,
// the exact number of bytes consumed, and any structural error. Fields are
// split on SOH in order; the frame ends at the CheckSum (10) field. The
// checksum and BodyLength values are not verified.
func Decode(data []byte) (*Message, int, error) {
	m := &Message{}
	i := 0
	for i < len(data) {
		soh := bytes.IndexByte(data[i:], SOH)
		if soh < 0 {
			return nil, 0, &FramingError{Offset: i, Reason: "field not terminated by SOH"}
		}
		raw := data[i : i+soh]
		eq := bytes.IndexByte(raw, '=')
		if eq <= 0 {
			return nil, 0, &FramingError{Offset: i, Reason: fmt.Sprintf("field %q has no tag=value form", raw)}
		}
		tag, err := strconv.Atoi(string(raw[:eq]))
		if err != nil {
			return nil, 0, &FramingError{Offset: i, Reason: fmt.Sprintf("non-numeric tag %q", raw[:eq])}
		}
		m.fields = append(m.fields, Field{Tag: tag, Value: string(raw[eq+1:])})
		i += soh + 1
		if tag == TagCheckSum {
			return m, i, nil
		}
	}
	return nil, 0, &FramingError{Offset: i, Reason: "frame has no CheckSum (10) terminator"}
}

// frameEnd marks the start of the field that closes every frame.
var frameEnd = []byte{SOH, '1', '0', '='}

// FrameLength reports the byte length of the first complete frame in buf,
// through the SOH that closes the CheckSum field. ok is false while buf
// holds only a partial frame. Values cannot contain SOH, so the marker can
// only match a real field boundary.
func FrameLength(buf []byte) (n int, ok bool) {
	idx := bytes.Index(buf, frameEnd)
	if idx < 0 {
		return 0, false
	}
	rest := buf[idx+len(frameEnd):]
	end := bytes.IndexByte(rest, SOH)
	if end < 0 {
		return 0, false
	}
	return idx + len(frameEnd) + end + 1, true
}

// Checksum sums data mod 256, the value carried in tag 10.
func Checksum(data []byte) int {
	sum := 0
	for _, b := range data {
		sum += int(b)
	}
	return sum % 256
}
