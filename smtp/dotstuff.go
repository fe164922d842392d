package smtp

import "bytes"

var dotByte = []byte{'.'}

// dotStuffSegments splits body into the sequence of byte slices that, written
// in order, produce body with RFC 5321 §4.5.2 dot-stuffing applied — without
// copying body itself. Every inserted "." segment is the same shared
// one-byte slice; the rest of the returned slices alias body directly, so
// the whole segment list
// can be handed straight to ByteStream.WriteMulti.
//
// Algorithm: if body begins with '.', emit one extra '.' first. Then
// repeatedly find the next "\r\n." in what's left: emit up to and including
// that "\r\n", emit one extra '.', and resume scanning from the original '.'
// (not yet emitted) so the next iteration's search starts past it rather
// than re-matching it.
func dotStuffSegments(body []byte) [][]byte {
	var segments [][]byte
	if len(body) > 0 && body[0] == '.' {
		segments = append(segments, dotByte)
	}
	remaining := body
	for {
		idx := bytes.Index(remaining, []byte("\r\n."))
		if idx == -1 {
			break
		}
		segments = append(segments, remaining[:idx+2])
		segments = append(segments, dotByte)
		remaining = remaining[idx+2:]
	}
	segments = append(segments, remaining)
	return segments
}

// DotStuff applies RFC 5321 §4.5.2 dot-stuffing to body, returning a freshly
// allocated copy. It is exposed for testing and for callers outside
// Session.SendMessage/SendMail that want to dot-stuff a body themselves; the
// command sequencer uses dotStuffSegments directly to avoid the allocation.
func DotStuff(body []byte) []byte {
	segments := dotStuffSegments(body)
	total := 0
	for _, s := range segments {
		total += len(s)
	}
	out := make([]byte, 0, total)
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}

// Unstuff reverses DotStuff: every line beginning with ".." has its leading
// "." removed. It is the inverse used by the round-trip property
// Unstuff(DotStuff(b)) == b; this package never needs it on the wire (it only
// emits messages, it never parses received ones), but keeping it alongside
// DotStuff documents the transformation it undoes.
func Unstuff(body []byte) []byte {
	out := make([]byte, 0, len(body))
	remaining := body
	atLineStart := true
	for len(remaining) > 0 {
		if atLineStart && len(remaining) >= 2 && remaining[0] == '.' && remaining[1] == '.' {
			remaining = remaining[1:]
		}
		idx := bytes.IndexByte(remaining, '\n')
		if idx == -1 {
			out = append(out, remaining...)
			break
		}
		out = append(out, remaining[:idx+1]...)
		remaining = remaining[idx+1:]
		atLineStart = true
	}
	return out
}
