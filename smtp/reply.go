package smtp

import "encoding/binary"

// byteOrder is the endianness used for the length prefixes this package
// writes into its own read buffer. The buffer never leaves process memory,
// so any fixed order works; little-endian is picked and used consistently
// rather than relying on host-native order, which Go's encoding/binary
// doesn't expose directly anyway.
var byteOrder = binary.LittleEndian

// ReplyLine is one line of a parsed multi-line SMTP reply: its status code,
// whether it is the reply's final line, and its text. ReplyLine aliases the
// Session's buffer (see Reply's doc comment) and is only valid until the
// next Session method call that touches the network.
type ReplyLine struct {
	Code    uint16
	IsLast  bool
	Message string
}

// Reply is a cursor over one complete multi-line SMTP reply, backed
// directly by the bytes the Session read off the wire.
//
// After Session.readMultilineReply finishes, the parsed region of the
// buffer has the layout:
//
//	offset 0 : [code_lo code_hi] [len0_lo len0_hi] <text_0 : len0 bytes>
//	            [\r\n] [was "dd"] [len1_lo len1_hi] <text_1 : len1 bytes>
//	            …
//	            [\r\n] [was "dd"] [lenN_lo lenN_hi] <text_N : lenN bytes>
//
// The first line's "ddd" and marker bytes hold the code and its length.
// Between two lines there are 6 bytes: the earlier line's CRLF, left as it
// is, and the later line's 4-byte code+marker header, whose last 2 bytes
// (final digit and marker) are overwritten with the later line's length. The
// CRLF and the first 2 header digits are unused filler. The region ends right
// after the last line's text; its CRLF is not part of it. The overwrite is
// only ever applied to bytes this package has already parsed — see
// readMultilineReply.
//
// A Reply must not be retained across a subsequent Session method call: the
// next command resets the Session's filled count to 0 and will overwrite
// exactly the bytes a live Reply is reading.
type Reply struct {
	region []byte // buf[:end of the last line's text] at the time the reply was parsed
	code   uint16
	pos    int    // offset in region where the not-yet-returned line's text begins
	length uint16 // length of the not-yet-returned line
	done   bool
}

// newReply builds a Reply over a just-completed parsed region. region must
// be at least 4 bytes: a uint16 code followed by a uint16 length for the
// first line.
func newReply(region []byte) Reply {
	if len(region) < 4 {
		// Session.readMultilineReply never hands us a region this short: it
		// always writes the code+length header for at least one line
		// first. A violation here is this package's own bug, not bad input.
		panic("smtp: reply region smaller than its own header")
	}
	return Reply{
		region: region,
		code:   byteOrder.Uint16(region[0:2]),
		pos:    4,
		length: byteOrder.Uint16(region[2:4]),
	}
}

// Code is the reply's status code, shared by every line.
func (r Reply) Code() uint16 {
	return r.code
}

// next returns the not-yet-returned line's text and advances the cursor. ok
// is false once every line has been returned. isLast reports whether the
// returned line was the reply's final line.
func (r *Reply) next() (text []byte, isLast bool, ok bool) {
	if r.done {
		return nil, false, false
	}
	text = r.region[r.pos : r.pos+int(r.length)]
	after := r.pos + int(r.length)
	tail := len(r.region) - after
	if tail < 6 {
		r.done = true
		return text, true, true
	}
	r.length = byteOrder.Uint16(r.region[after+4 : after+6])
	r.pos = after + 6
	return text, false, true
}

// Lines returns every line's text, in order, as zero-copy strings aliasing
// the session buffer.
func (r Reply) Lines() []string {
	var out []string
	for {
		text, _, ok := r.next()
		if !ok {
			break
		}
		out = append(out, unsafeString(text))
	}
	return out
}

// Replies returns every line as a ReplyLine, in order.
func (r Reply) Replies() []ReplyLine {
	var out []ReplyLine
	for {
		text, isLast, ok := r.next()
		if !ok {
			break
		}
		out = append(out, ReplyLine{Code: r.code, IsLast: isLast, Message: unsafeString(text)})
	}
	return out
}

// currentLine returns the first not-yet-consumed line's text without
// advancing the cursor. Used by Ready to pull the greeting's hostname.
func (r Reply) currentLine() string {
	return unsafeString(r.region[r.pos : r.pos+int(r.length)])
}
