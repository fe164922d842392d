// Package message builds RFC 5322 Internet Message Format messages for
// streaming through Session.SendMessage. It only ever emits messages; it
// never parses one received off the wire.
package message

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// dateLayout is RFC 5322 §3.3's date-time format: a numeric zone offset,
// never a named zone. It is identical to the stdlib's time.RFC1123Z layout
// string; spelled out here so the RFC section it implements is obvious at
// the call site.
const dateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// Header is one name/value pair pulled out of a Message for validation or
// inspection, independent of how the message is ultimately rendered.
type Header struct {
	Name  string
	Value string
}

// InvalidHeaderError reports that a caller-supplied header value contained a
// CRLF sequence, which would otherwise let it inject arbitrary extra
// headers (or escape the header block entirely) once written to the wire.
type InvalidHeaderError struct {
	Name string
}

func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("message: header %q contains a CR LF sequence", e.Name)
}

// Message is an RFC 5322 email message. Date, From and MessageID are
// required and set by New; everything else is optional and set with the
// With* builder methods, each of which returns a modified copy (the
// message-building styles this package's reference implementation used —
// owned, consuming builders — translate to Go as value-receiver methods
// returning a new value, rather than in-place mutation).
//
// For multiple recipients, format them yourself: "a@x.com, b@y.com".
//
// An optional field left unset is omitted entirely from the rendered
// message rather than emitted as an empty header.
type Message struct {
	Date      time.Time
	From      string
	MessageID string

	To         string
	Cc         string
	Bcc        string
	Subject    string
	ReplyTo    string
	InReplyTo  string
	References string
	Body       string
}

// New creates a message with the three required RFC 5322 headers.
// messageID should not include the angle brackets; Bytes adds them.
func New(date time.Time, from, messageID string) Message {
	return Message{Date: date, From: from, MessageID: messageID}
}

// Now returns the current time, for building a Message with New without
// every caller needing its own "time" import.
func Now() time.Time {
	return time.Now()
}

// NewDate renders t the way Bytes renders the Date header: RFC 5322 §3.3's
// date-time format, a numeric zone offset rather than a named zone.
func NewDate(t time.Time) string {
	return t.Format(dateLayout)
}

func (m Message) WithTo(to string) Message                 { m.To = to; return m }
func (m Message) WithCc(cc string) Message                 { m.Cc = cc; return m }
func (m Message) WithBcc(bcc string) Message                { m.Bcc = bcc; return m }
func (m Message) WithSubject(subject string) Message         { m.Subject = subject; return m }
func (m Message) WithReplyTo(replyTo string) Message         { m.ReplyTo = replyTo; return m }
func (m Message) WithInReplyTo(id string) Message            { m.InReplyTo = id; return m }
func (m Message) WithReferences(references string) Message   { m.References = references; return m }
func (m Message) WithBody(body string) Message                { m.Body = body; return m }

// Headers returns every header this message will render except Date (which
// is formatted from a time.Time, not caller text), in rendering order, each
// paired with its raw (un-escaped, un-wrapped) value. Session
// uses this to run its own CRLF injection check ahead of Bytes.
func (m Message) Headers() []Header {
	headers := []Header{
		{Name: "From", Value: m.From},
		{Name: "Message-ID", Value: m.MessageID},
	}
	optional := []Header{
		{Name: "To", Value: m.To},
		{Name: "Cc", Value: m.Cc},
		{Name: "Bcc", Value: m.Bcc},
		{Name: "Reply-To", Value: m.ReplyTo},
		{Name: "Subject", Value: m.Subject},
		{Name: "In-Reply-To", Value: m.InReplyTo},
		{Name: "References", Value: m.References},
	}
	for _, h := range optional {
		if h.Value != "" {
			headers = append(headers, h)
		}
	}
	return headers
}

// Validate scans every header value for an embedded CRLF sequence, the
// injection guard RFC 5321 implicitly requires of anything that writes
// caller-supplied text into a header block.
func (m Message) Validate() error {
	for _, h := range m.Headers() {
		if strings.Contains(h.Value, "\r\n") {
			return &InvalidHeaderError{Name: h.Name}
		}
	}
	return nil
}

// Bytes renders the message: CRLF-terminated headers, a blank line, then
// the body. It validates first and allocates nothing if validation fails.
func (m Message) Bytes() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "Date: %s\r\n", NewDate(m.Date))
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", m.MessageID)
	if m.To != "" {
		fmt.Fprintf(&b, "To: %s\r\n", m.To)
	}
	if m.Cc != "" {
		fmt.Fprintf(&b, "Cc: %s\r\n", m.Cc)
	}
	if m.Bcc != "" {
		fmt.Fprintf(&b, "Bcc: %s\r\n", m.Bcc)
	}
	if m.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", m.ReplyTo)
	}
	if m.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	}
	if m.InReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", m.InReplyTo)
	}
	if m.References != "" {
		fmt.Fprintf(&b, "References: %s\r\n", m.References)
	}
	b.WriteString("\r\n")
	b.WriteString(m.Body)
	return b.Bytes(), nil
}

// String renders the message, discarding any validation error. Prefer
// Bytes (or Session.SendMessage, which surfaces the error) when a caller
// needs to know validation succeeded.
func (m Message) String() string {
	b, err := m.Bytes()
	if err != nil {
		return ""
	}
	return string(b)
}

// WriteTo renders the message straight to w, satisfying io.WriterTo.
func (m Message) WriteTo(w io.Writer) (int64, error) {
	b, err := m.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// GenerateMessageID builds a Message-ID local-part from the current time,
// paired with domain. The result does not include angle brackets.
func GenerateMessageID(domain string) string {
	return fmt.Sprintf("%x@%s", time.Now().UnixNano(), domain)
}
