package smtp

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseExtension(t *testing.T) {
	Convey("ParseExtension classifies known keywords case-insensitively", t, func() {
		So(ParseExtension("STARTTLS").Kind, ShouldEqual, ExtStartTLS)
		So(ParseExtension("starttls").Kind, ShouldEqual, ExtStartTLS)

		auth := ParseExtension("AUTH PLAIN LOGIN")
		So(auth.Kind, ShouldEqual, ExtAuth)
		So(auth.Args, ShouldEqual, "PLAIN LOGIN")

		other := ParseExtension("8BITMIME")
		So(other.Kind, ShouldEqual, ExtOther)
		So(other.Name, ShouldEqual, "8BITMIME")
		So(other.Args, ShouldEqual, "")

		sized := ParseExtension("SIZE 35882577")
		So(sized.Kind, ShouldEqual, ExtOther)
		So(sized.Name, ShouldEqual, "SIZE")
		So(sized.Args, ShouldEqual, "35882577")
	})
}

func TestEhloResponse(t *testing.T) {
	Convey("Given an EHLO reply with a greeting and three extensions", t, func() {
		lines := []string{"mail.example.com at your service", "PIPELINING", "AUTH PLAIN LOGIN", "STARTTLS"}
		region := multilineRegion(250, lines)
		resp := newEhloResponse(newReply(region))

		Convey("Extensions skips the greeting line", func() {
			exts := resp.Extensions()
			So(len(exts), ShouldEqual, 3)
			So(exts[0].Kind, ShouldEqual, ExtOther)
			So(exts[1].Kind, ShouldEqual, ExtAuth)
			So(exts[2].Kind, ShouldEqual, ExtStartTLS)
		})

		Convey("Supports finds STARTTLS", func() {
			So(resp.Supports(Extension{Kind: ExtStartTLS}), ShouldBeTrue)
		})

		Convey("Supports finds a specific AUTH mechanism case-insensitively", func() {
			So(resp.Supports(Extension{Kind: ExtAuth, Args: "plain"}), ShouldBeTrue)
			So(resp.Supports(Extension{Kind: ExtAuth, Args: "login"}), ShouldBeTrue)
			So(resp.Supports(Extension{Kind: ExtAuth, Args: "cram-md5"}), ShouldBeFalse)
		})

		Convey("Supports with empty Args matches any AUTH", func() {
			So(resp.Supports(Extension{Kind: ExtAuth}), ShouldBeTrue)
		})

		Convey("Supports reports false for an unadvertised extension", func() {
			So(resp.Supports(Extension{Kind: ExtOther, Name: "DSN"}), ShouldBeFalse)
		})
	})
}

func TestReadyHostname(t *testing.T) {
	Convey("newReady parses the hostname off the greeting's first word", t, func() {
		region := singleLineRegion(220, "mail.example.com ESMTP Postfix")
		r := newReady(newReply(region))
		So(r.Hostname(), ShouldEqual, "mail.example.com")
		So(r.Code(), ShouldEqual, 220)
	})
}

// multilineRegion builds a reply region out of a code and a slice of lines,
// the last of which is marked IsLast, for use by tests that need a
// multi-line Reply without going through Session.readMultilineReply.
func multilineRegion(code uint16, lines []string) []byte {
	total := 4
	for i, l := range lines {
		if i > 0 {
			total += 6
		}
		total += len(l)
	}
	region := make([]byte, total)
	byteOrder.PutUint16(region[0:2], code)
	byteOrder.PutUint16(region[2:4], uint16(len(lines[0])))
	pos := 4
	copy(region[pos:], lines[0])
	pos += len(lines[0])
	for _, l := range lines[1:] {
		byteOrder.PutUint16(region[pos+4:pos+6], uint16(len(l)))
		pos += 6
		copy(region[pos:], l)
		pos += len(l)
	}
	return region
}
