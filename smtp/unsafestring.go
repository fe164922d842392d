package smtp

import "unsafe"

// unsafeString aliases b as a string with no copy. It must only be called on
// byte ranges that have already been validated as UTF-8 by the caller (see
// readMultilineReply), and the returned string inherits the exact same lifetime
// contract as b: it is only valid until the next Session method call that
// touches the network or otherwise mutates the session buffer.
//
// This is the one place this package reaches for unsafe. Go's ordinary
// string(b) conversion copies, which would silently defeat the whole point
// of the buffer-reuse scheme this package exists to demonstrate: a Reply is
// supposed to iterate text out of the same bytes the server wrote, not out
// of a fresh copy of them.
func unsafeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
