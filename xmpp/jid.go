// Package xmpp implements JID addressing and a sans-IO XMPP client
// protocol state machine on top of the stream framer.
//
// The protocol code transforms received bytes into events and
// outgoing stanzas into bytes without doing any I/O itself; sockets,
// TLS and timing belong to the application.
package xmpp

import (
	"strings"

	"github.com/pkg/errors"
)

const maxPartLength = 1023

// JID is a parsed Jabber identifier of the form
// localpart@domainpart/resourcepart, where the localpart and
// resourcepart are optional.
type JID struct {
	full     string
	atPos    int // index of '@' in full, -1 when no localpart
	slashPos int // index of '/' in full, -1 when no resourcepart
}

// ParseJID parses and validates a JID string. A trailing dot on the
// domainpart is removed as RFC 7622 section 3.2 requires.
func ParseJID(s string) (JID, error) {
	slash := strings.IndexByte(s, '/')
	bare := s
	if slash >= 0 {
		bare = s[:slash]
	}
	at := strings.IndexByte(bare, '@')

	domain := bare
	if at >= 0 {
		domain = bare[at+1:]
	}
	switch {
	case domain == "":
		return JID{}, errors.New("invalid JID: domainpart is empty")
	case len(domain) > maxPartLength:
		return JID{}, errors.New("invalid JID: domainpart is longer than 1023 octets")
	}
	domain = strings.TrimSuffix(domain, ".")

	var local string
	if at >= 0 {
		local = bare[:at]
		switch {
		case local == "":
			return JID{}, errors.New("invalid JID: localpart is empty")
		case len(local) > maxPartLength:
			return JID{}, errors.New("invalid JID: localpart is longer than 1023 octets")
		}
	}

	var resource string
	if slash >= 0 {
		resource = s[slash+1:]
		switch {
		case resource == "":
			return JID{}, errors.New("invalid JID: resourcepart is empty")
		case len(resource) > maxPartLength:
			return JID{}, errors.New("invalid JID: resourcepart is longer than 1023 octets")
		}
	}

	var sb strings.Builder
	sb.Grow(len(local) + 1 + len(domain) + 1 + len(resource))
	atPos, slashPos := -1, -1
	if local != "" {
		sb.WriteString(local)
		atPos = sb.Len()
		sb.WriteByte('@')
	}
	sb.WriteString(domain)
	if resource != "" {
		slashPos = sb.Len()
		sb.WriteByte('/')
		sb.WriteString(resource)
	}
	return JID{full: sb.String(), atPos: atPos, slashPos: slashPos}, nil
}

// Full returns the complete JID string.
func (j JID) Full() string { return j.full }

// Bare returns the JID without the resourcepart.
func (j JID) Bare() string {
	if j.slashPos >= 0 {
		return j.full[:j.slashPos]
	}
	return j.full
}

// Localpart returns the localpart and whether one is present.
func (j JID) Localpart() (string, bool) {
	if j.atPos < 0 {
		return "", false
	}
	return j.full[:j.atPos], true
}

// Domainpart returns the domainpart.
func (j JID) Domainpart() string {
	start := 0
	if j.atPos >= 0 {
		start = j.atPos + 1
	}
	end := len(j.full)
	if j.slashPos >= 0 {
		end = j.slashPos
	}
	return j.full[start:end]
}

// Resourcepart returns the resourcepart and whether one is present.
func (j JID) Resourcepart() (string, bool) {
	if j.slashPos < 0 {
		return "", false
	}
	return j.full[j.slashPos+1:], true
}

// IsBare reports whether the JID has no resourcepart.
func (j JID) IsBare() bool { return j.slashPos < 0 }

// WithResource returns a copy of the JID with the resourcepart
// replaced.
func (j JID) WithResource(resource string) (JID, error) {
	switch {
	case resource == "":
		return JID{}, errors.New("invalid JID: resourcepart is empty")
	case len(resource) > maxPartLength:
		return JID{}, errors.New("invalid JID: resourcepart is longer than 1023 octets")
	}
	bare := j.Bare()
	return JID{
		full:     bare + "/" + resource,
		atPos:    j.atPos,
		slashPos: len(bare),
	}, nil
}

func (j JID) String() string { return j.full }
