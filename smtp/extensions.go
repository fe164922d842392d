package smtp

import (
	"fmt"
	"strings"
)

// ExtensionKind distinguishes a recognized EHLO extension keyword from an
// unrecognized one.
type ExtensionKind int

const (
	// ExtStartTLS is the STARTTLS extension; its arguments are ignored.
	ExtStartTLS ExtensionKind = iota
	// ExtAuth is the AUTH extension; Args holds the space-separated list of
	// SASL mechanism names the server advertised, possibly empty.
	ExtAuth
	// ExtOther is any extension keyword this package doesn't special-case.
	ExtOther
)

// Extension is one line of an EHLO reply, parsed into a keyword/argument
// pair. Keyword matching is ASCII case-insensitive; Args is preserved
// verbatim.
type Extension struct {
	Kind ExtensionKind
	// Name holds the raw keyword when Kind == ExtOther.
	Name string
	// Args holds the mechanism list when Kind == ExtAuth, or the raw
	// argument string when Kind == ExtOther.
	Args string
}

func (e Extension) String() string {
	switch e.Kind {
	case ExtStartTLS:
		return "STARTTLS"
	case ExtAuth:
		return "AUTH"
	default:
		if e.Args == "" {
			return e.Name
		}
		return fmt.Sprintf("%s %s", e.Name, e.Args)
	}
}

// ParseExtension splits an EHLO continuation line on its first space into a
// keyword and its arguments, then classifies the keyword. Matching is
// ASCII-case-insensitive.
func ParseExtension(line string) Extension {
	keyword, args, hasArgs := strings.Cut(line, " ")
	if !hasArgs {
		keyword, args = line, ""
	}
	switch {
	case strings.EqualFold(keyword, "STARTTLS"):
		return Extension{Kind: ExtStartTLS}
	case strings.EqualFold(keyword, "AUTH"):
		return Extension{Kind: ExtAuth, Args: args}
	default:
		return Extension{Kind: ExtOther, Name: keyword, Args: args}
	}
}

// equal reports structural equality, used by Supports for StartTLS/Other.
func (e Extension) equal(other Extension) bool {
	if e.Kind != other.Kind {
		return false
	}
	switch e.Kind {
	case ExtOther:
		return strings.EqualFold(e.Name, other.Name) && e.Args == other.Args
	default:
		return true
	}
}

// EhloResponse wraps a 250 EHLO reply. Its first line is the server's
// greeting; each subsequent line advertises one extension.
type EhloResponse struct {
	reply Reply
}

func newEhloResponse(reply Reply) EhloResponse {
	return EhloResponse{reply: reply}
}

// Code is the reply's status code (always 250 for a value Session.Ehlo
// returns successfully).
func (r EhloResponse) Code() uint16 { return r.reply.Code() }

// Extensions parses and returns every extension the server advertised,
// skipping the greeting line. Go has no equivalent of a lending iterator
// over borrowed text, so this materializes a small, bounded slice instead —
// an EHLO reply has at most a few dozen lines in practice.
func (r EhloResponse) Extensions() []Extension {
	lines := r.reply.Lines()
	if len(lines) == 0 {
		return nil
	}
	out := make([]Extension, 0, len(lines)-1)
	for _, line := range lines[1:] {
		out = append(out, ParseExtension(line))
	}
	return out
}

// Supports reports whether the server advertised ext.
//
//   - ExtStartTLS or ExtOther: true if some listed extension is structurally
//     equal to ext.
//   - ExtAuth with empty Args: true if the server advertised AUTH at all,
//     regardless of mechanism.
//   - ExtAuth with a mechanism name in Args: true if some listed AUTH
//     extension's mechanism list contains that mechanism as a
//     whitespace-separated, case-insensitive token.
func (r EhloResponse) Supports(ext Extension) bool {
	for _, have := range r.Extensions() {
		if ext.Kind == ExtAuth {
			if have.Kind != ExtAuth {
				continue
			}
			if ext.Args == "" {
				return true
			}
			for _, mech := range strings.Fields(have.Args) {
				if strings.EqualFold(mech, ext.Args) {
					return true
				}
			}
			continue
		}
		if have.equal(ext) {
			return true
		}
	}
	return false
}

// Ready wraps the 220 greeting Reply, exposing the server hostname parsed
// from its first line.
type Ready struct {
	reply    Reply
	hostname string
}

func newReady(reply Reply) Ready {
	first := reply.currentLine()
	hostname, _, found := strings.Cut(first, " ")
	if !found {
		hostname = first
	}
	return Ready{reply: reply, hostname: hostname}
}

// Hostname is the text before the first space on the greeting's first line.
func (r Ready) Hostname() string { return r.hostname }

// Code is the reply's status code (always 220 for a value Session.Ready
// returns successfully).
func (r Ready) Code() uint16 { return r.reply.Code() }
