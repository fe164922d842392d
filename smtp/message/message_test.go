package message

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func fixedDate() time.Time {
	return time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
}

func TestMessageBytes(t *testing.T) {
	Convey("A minimal message renders Date, From and Message-ID only", t, func() {
		m := New(fixedDate(), "alice@example.com", "abc123@example.com")
		b, err := m.Bytes()
		So(err, ShouldBeNil)

		rendered := string(b)
		So(rendered, ShouldStartWith, "Date: Thu, 30 Jul 2026 12:00:00 +0000\r\n")
		So(rendered, ShouldContainSubstring, "From: alice@example.com\r\n")
		So(rendered, ShouldContainSubstring, "Message-ID: <abc123@example.com>\r\n")
		So(rendered, ShouldContainSubstring, "\r\n\r\n")
		So(strings.HasSuffix(rendered, "\r\n\r\n"), ShouldBeTrue)
	})

	Convey("With* builders add their headers and body in rendering order", t, func() {
		m := New(fixedDate(), "alice@example.com", "abc123@example.com").
			WithTo("bob@example.com").
			WithCc("carol@example.com").
			WithSubject("hello").
			WithReplyTo("alice@example.com").
			WithInReplyTo("xyz@example.com").
			WithReferences("xyz@example.com").
			WithBody("body text")

		rendered := m.String()
		order := []string{"From:", "Message-ID:", "To:", "Cc:", "Reply-To:", "Subject:", "In-Reply-To:", "References:"}
		last := 0
		for _, header := range order {
			idx := strings.Index(rendered, header)
			So(idx, ShouldBeGreaterThanOrEqualTo, last)
			last = idx
		}
		So(rendered, ShouldEndWith, "body text")
	})

	Convey("An unset optional header is omitted entirely", t, func() {
		m := New(fixedDate(), "alice@example.com", "abc123@example.com")
		rendered := m.String()
		So(rendered, ShouldNotContainSubstring, "Subject:")
		So(rendered, ShouldNotContainSubstring, "Cc:")
	})
}

func TestMessageValidate(t *testing.T) {
	Convey("A header value containing CRLF fails validation", t, func() {
		m := New(fixedDate(), "alice@example.com", "abc123@example.com").
			WithSubject("hi\r\nBcc: everyone@example.com")

		err := m.Validate()
		So(err, ShouldNotBeNil)

		var invalid *InvalidHeaderError
		So(errors.As(err, &invalid), ShouldBeTrue)
		So(invalid.Name, ShouldEqual, "Subject")
	})

	Convey("Bytes refuses to allocate when validation fails", t, func() {
		m := New(fixedDate(), "alice@example.com", "abc123@example.com").
			WithSubject("hi\r\nBcc: everyone@example.com")

		b, err := m.Bytes()
		So(err, ShouldNotBeNil)
		So(b, ShouldBeNil)
	})
}

func TestGenerateMessageID(t *testing.T) {
	Convey("GenerateMessageID appends the domain after an @", t, func() {
		id := GenerateMessageID("example.com")
		So(id, ShouldEndWith, "@example.com")
	})
}

func TestNewDate(t *testing.T) {
	Convey("NewDate renders the RFC 5322 date-time format", t, func() {
		So(NewDate(fixedDate()), ShouldEqual, "Thu, 30 Jul 2026 12:00:00 +0000")
	})
}

func TestNow(t *testing.T) {
	Convey("Now returns a time usable directly with New", t, func() {
		m := New(Now(), "alice@example.com", "abc123@example.com")
		So(m.Date.IsZero(), ShouldBeFalse)
	})
}

func TestMessageWriteTo(t *testing.T) {
	Convey("WriteTo renders the same bytes as Bytes", t, func() {
		m := New(fixedDate(), "alice@example.com", "abc123@example.com").
			WithSubject("hello").
			WithBody("hi")

		var buf bytes.Buffer
		n, err := m.WriteTo(&buf)
		So(err, ShouldBeNil)

		want, _ := m.Bytes()
		So(n, ShouldEqual, int64(len(want)))
		So(buf.Bytes(), ShouldResemble, want)
	})

	Convey("WriteTo surfaces a validation error without writing anything", t, func() {
		m := New(fixedDate(), "alice@example.com", "abc123@example.com").
			WithSubject("hi\r\nBcc: everyone@example.com")

		var buf bytes.Buffer
		_, err := m.WriteTo(&buf)
		So(err, ShouldNotBeNil)
		So(buf.Len(), ShouldEqual, 0)
	})
}
