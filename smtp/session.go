package smtp

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/gopistolet/smtpclient/smtp/message"
)

// Session drives one SMTP conversation over a ByteStream: EHLO, STARTTLS,
// AUTH PLAIN, MAIL/RCPT/DATA, and QUIT, in whatever order the caller (who
// alone knows the server's advertised extensions) chooses to call them.
// There is no type-level state machine enforcing command order — this
// package is a thin sequencer, not a protocol-correctness proof, the same
// division of labor the command layer this package is modeled on uses.
//
// A Session is not safe for concurrent use. Every method blocks until it
// completes or the underlying ByteStream fails; wrap the ByteStream with a
// deadline (net.Conn.SetDeadline) or drive the dial itself with a context
// (see transport.Dial) for cancellation — Session has no cancellation path
// of its own, matching its synchronous, blocking design.
type Session struct {
	stream ByteStream
	buf    Buffer

	filled int // bytes read from stream into buf.data[0:filled], not yet folded into a parsed region
	log    *logrus.Entry
}

// NewSession wraps stream in a Session backed by a freshly allocated buffer
// of DefaultBufferCapacity bytes.
func NewSession(stream ByteStream) *Session {
	return NewSessionWithBuffer(stream, NewBuffer(DefaultBufferCapacity))
}

// NewSessionWithBuffer wraps stream in a Session backed by buf. Passing a
// Buffer built with NewBorrowedBuffer lets a caller on a constrained device
// supply the reply buffer instead of having one allocated. The Session still
// allocates elsewhere: command lines other than AUTH are built as strings
// and written with WriteSingle, debug logging allocates, and SendMessage
// renders the message into a fresh byte slice.
func NewSessionWithBuffer(stream ByteStream, buf Buffer) *Session {
	return &Session{
		stream: stream,
		buf:    buf,
		log:    logrus.WithField("component", "smtp.Session"),
	}
}

// IntoInner tears the Session down and returns its stream and buffer, so a
// caller can splice in a TLS-upgraded stream (see transport.UpgradeTLS)
// after StartTLS succeeds and build a new Session around it.
func (s *Session) IntoInner() (ByteStream, Buffer) {
	return s.stream, s.buf
}

// fillBuffer reads from the stream until buf.data[0:atLeast] is valid,
// growing s.filled as it goes. It fails with ProtocolError{LineTooLong} if
// atLeast exceeds the buffer's fixed capacity.
func (s *Session) fillBuffer(atLeast int) error {
	data := s.buf.Bytes()
	if atLeast > len(data) {
		return protocolError(LineTooLong)
	}
	for s.filled < atLeast {
		n, err := s.stream.Read(data[s.filled:])
		if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
			return malformedError(UnexpectedEof)
		}
		if err != nil {
			return ioError(err)
		}
		s.filled += n
	}
	return nil
}

// findCRLF scans data[from:] for the first CRLF, growing the filled region
// via fillBuffer as needed. It returns the absolute index of the '\r'.
func (s *Session) findCRLF(from int) (int, error) {
	i := from
	for {
		data := s.buf.Bytes()
		for i < s.filled {
			switch data[i] {
			case '\r':
				if i+1 >= s.filled {
					if err := s.fillBuffer(i + 2); err != nil {
						return 0, err
					}
					data = s.buf.Bytes()
				}
				if data[i+1] != '\n' {
					return 0, malformedError(InvalidLineTermination)
				}
				return i, nil
			case '\n':
				return 0, malformedError(InvalidLineTermination)
			default:
				i++
			}
		}
		if err := s.fillBuffer(s.filled + 1); err != nil {
			return 0, err
		}
	}
}

// readMultilineReply reads and in-place parses one complete SMTP reply —
// one or more CRLF-terminated lines sharing a status code, the last of
// which has a space (rather than a dash) as its fourth byte — into a Reply
// over s.buf. See Reply's doc comment for the resulting in-memory layout.
func (s *Session) readMultilineReply() (Reply, error) {
	s.filled = 0

	if err := s.fillBuffer(4); err != nil {
		return Reply{}, err
	}
	data := s.buf.Bytes()
	code, err := parseCode(data[0:3])
	if err != nil {
		return Reply{}, err
	}
	isLast, err := parseMarker(data[3])
	if err != nil {
		return Reply{}, err
	}

	crlf, err := s.findCRLF(4)
	if err != nil {
		return Reply{}, err
	}
	data = s.buf.Bytes()
	text := data[4:crlf]
	if !utf8.Valid(text) {
		return Reply{}, malformedError(InvalidEncoding)
	}
	length := len(text)
	byteOrder.PutUint16(data[0:2], code)
	byteOrder.PutUint16(data[2:4], uint16(length))

	after := 4 + length
	s.log.WithFields(logrus.Fields{"code": code, "last": isLast}).Debug("smtp: reply line")
	for !isLast {
		if err := s.fillBuffer(after + 6); err != nil {
			return Reply{}, err
		}
		data = s.buf.Bytes()
		lineCode, err := parseCode(data[after+2 : after+5])
		if err != nil {
			return Reply{}, err
		}
		if lineCode != code {
			return Reply{}, codeChangedError(code, lineCode)
		}
		isLast, err = parseMarker(data[after+5])
		if err != nil {
			return Reply{}, err
		}

		crlf, err = s.findCRLF(after + 6)
		if err != nil {
			return Reply{}, err
		}
		data = s.buf.Bytes()
		text = data[after+6 : crlf]
		if !utf8.Valid(text) {
			return Reply{}, malformedError(InvalidEncoding)
		}
		length = len(text)
		byteOrder.PutUint16(data[after+4:after+6], uint16(length))
		s.log.WithFields(logrus.Fields{"code": lineCode, "last": isLast}).Debug("smtp: reply line")
		after = after + 6 + length
	}

	return newReply(data[0:after]), nil
}

// parseCode parses a 3-byte ASCII decimal status code.
func parseCode(b []byte) (uint16, error) {
	var code uint16
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, malformedError(NoCode)
		}
		code = code*10 + uint16(c-'0')
	}
	return code, nil
}

// parseMarker reads the byte following a reply's 3-digit code: ' ' marks the
// reply's final line, '-' marks a continuation.
func parseMarker(b byte) (isLast bool, err error) {
	switch b {
	case ' ':
		return true, nil
	case '-':
		return false, nil
	default:
		return false, malformedError(InvalidEncoding)
	}
}

// readReply reads one reply and checks its code is one of expected. An
// empty expected accepts any code.
func (s *Session) readReply(expected ...uint16) (Reply, error) {
	reply, err := s.readMultilineReply()
	if err != nil {
		return Reply{}, err
	}
	if len(expected) == 0 {
		return reply, nil
	}
	for _, code := range expected {
		if reply.Code() == code {
			return reply, nil
		}
	}
	return Reply{}, unexpectedCodeError(reply.Code(), expected...)
}

// sendLine writes one CRLF-terminated command line.
func (s *Session) sendLine(line string) error {
	s.log.WithField("line", line).Debug("smtp: command")
	if err := s.stream.WriteSingle([]byte(line + "\r\n")); err != nil {
		return ioError(err)
	}
	return nil
}

// Ready reads the server's initial 220 greeting. It must be the first
// method called on a freshly connected Session.
func (s *Session) Ready() (Ready, error) {
	reply, err := s.readReply(220)
	if err != nil {
		return Ready{}, err
	}
	return newReady(reply), nil
}

// Ehlo sends "EHLO domain" and returns the parsed 250 response.
func (s *Session) Ehlo(domain string) (EhloResponse, error) {
	if err := s.sendLine("EHLO " + domain); err != nil {
		return EhloResponse{}, err
	}
	reply, err := s.readReply(250)
	if err != nil {
		return EhloResponse{}, err
	}
	return newEhloResponse(reply), nil
}

// StartTLS sends "STARTTLS" and confirms the server's 220 go-ahead. It does
// not itself perform the TLS handshake: call IntoInner to retrieve the
// underlying stream, wrap it (see transport.UpgradeTLS), and build a new
// Session over the upgraded connection with NewSessionWithBuffer, reusing
// the Buffer IntoInner also returned.
func (s *Session) StartTLS() error {
	if err := s.sendLine("STARTTLS"); err != nil {
		return err
	}
	_, err := s.readReply(220)
	return err
}

// Auth performs a single-step AUTH PLAIN exchange: the SASL PLAIN initial
// response ("\0user\0pass") is assembled at the front of the session buffer
// and base64-encoded into the space after it (via the destination-slice form
// of encoding/base64, never EncodeToString), and the encoded bytes are sent
// straight out of the buffer with one WriteMulti call. It fails with
// ProtocolError{LineTooLong} if the buffer cannot hold both.
func (s *Session) Auth(user, pass string) error {
	rawLen := 2 + len(user) + len(pass)
	encLen := base64.StdEncoding.EncodedLen(rawLen)
	data := s.buf.Bytes()
	if rawLen+encLen > len(data) {
		return protocolError(LineTooLong)
	}
	data[0] = 0
	copy(data[1:], user)
	data[1+len(user)] = 0
	copy(data[2+len(user):], pass)
	encoded := data[rawLen : rawLen+encLen]
	base64.StdEncoding.Encode(encoded, data[:rawLen])
	s.log.WithField("line", "AUTH PLAIN").Debug("smtp: command")
	if err := s.stream.WriteMulti([][]byte{[]byte("AUTH PLAIN "), encoded, []byte("\r\n")}); err != nil {
		return ioError(err)
	}
	_, err := s.readReply(235)
	return err
}

// SendMail runs the envelope exchange for one message: MAIL FROM, one RCPT
// TO per recipient, DATA, the dot-stuffed body, and the terminating
// "\r\n.\r\n". data is written as-is other than dot-stuffing; callers
// building a structured RFC 5322 message should use SendMessage instead.
func (s *Session) SendMail(from string, to []string, data []byte) error {
	if err := s.sendLine(fmt.Sprintf("MAIL FROM:<%s>", from)); err != nil {
		return err
	}
	if _, err := s.readReply(250); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := s.sendLine(fmt.Sprintf("RCPT TO:<%s>", rcpt)); err != nil {
			return err
		}
		if _, err := s.readReply(250); err != nil {
			return err
		}
	}
	if err := s.sendLine("DATA"); err != nil {
		return err
	}
	if _, err := s.readReply(354); err != nil {
		return err
	}
	segments := dotStuffSegments(data)
	segments = append(segments, []byte("\r\n.\r\n"))
	if err := s.stream.WriteMulti(segments); err != nil {
		return ioError(err)
	}
	_, err := s.readReply(250)
	return err
}

// SendMessage renders msg and streams it with SendMail. Every header value
// msg carries is scanned for an embedded CRLF before SendMessage writes a
// single byte to the wire — a defense-in-depth duplicate of the check
// message.Message.Bytes already runs, kept here so a future change to the
// message package's internals can't silently drop the guard for callers
// going through Session.
func (s *Session) SendMessage(msg message.Message, from string, to []string) error {
	for _, h := range msg.Headers() {
		if strings.Contains(h.Value, "\r\n") {
			return invalidHeaderError(h.Name)
		}
	}
	body, err := msg.Bytes()
	if err != nil {
		var invalid *message.InvalidHeaderError
		if errors.As(err, &invalid) {
			return invalidHeaderError(invalid.Name)
		}
		return ioError(err)
	}
	return s.SendMail(from, to, body)
}

// Quit sends "QUIT" and waits for the server's 221 acknowledgement.
func (s *Session) Quit() error {
	if err := s.sendLine("QUIT"); err != nil {
		return err
	}
	_, err := s.readReply(221)
	return err
}

// FastQuit sends "QUIT" without waiting for a reply, for callers tearing
// down a connection they don't intend to reuse and don't care to leave the
// server in a clean state for. Session makes no guarantee about the
// session's state after FastQuit returns; discard it.
func (s *Session) FastQuit() error {
	return s.sendLine("QUIT")
}
