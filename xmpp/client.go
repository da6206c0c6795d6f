package xmpp

import (
	"bytes"
	"encoding/base64"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/meduketto/iksemel-go/dom"
	"github.com/meduketto/iksemel-go/stream"
)

// EventKind identifies the type of a client protocol Event.
type EventKind uint8

const (
	// KindNone means no event; more input is needed.
	KindNone EventKind = iota
	// KindSend asks the application to transmit Event.Data.
	KindSend
	// KindStartTLS asks the application to upgrade the transport to
	// TLS, then call Start to reopen the stream.
	KindStartTLS
	// KindStreamOpened reports that the server accepted the stream.
	KindStreamOpened
	// KindOnline names the end of negotiation. Client never returns
	// it: Online reports the state instead, and turns true as soon as
	// the resource bind request is sent.
	KindOnline
	// KindStanza carries one received message, presence or iq.
	KindStanza
	// KindStreamClosed reports the end of the stream.
	KindStreamClosed
)

func (k EventKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindSend:
		return "Send"
	case KindStartTLS:
		return "StartTLS"
	case KindStreamOpened:
		return "StreamOpened"
	case KindOnline:
		return "Online"
	case KindStanza:
		return "Stanza"
	case KindStreamClosed:
		return "StreamClosed"
	}
	return "EventKind(?)"
}

// Event is a single client protocol output.
type Event struct {
	Kind EventKind

	// Data is set for KindSend.
	Data []byte

	// Stanza is set for KindStanza. Ownership passes to the caller.
	Stanza *dom.Document
}

type clientState uint8

const (
	stateConnected clientState = iota
	stateStartSent
	stateStartReceived
	stateFeaturesReceived
	stateHandshake
	stateSecureStartSent
	stateSecureStartReceived
	stateSecureFeaturesReceived
	stateAuthStartSent
	stateAuthStartReceived
	stateOnline
	stateClosed
	stateError
)

// Client is the sans-IO XMPP client protocol state machine.
//
// The application owns the socket: it calls Start for the opening
// bytes, RecvBytes with whatever arrives, PollEvent until KindNone,
// and transmits the Data of every KindSend event. The negotiation
// sequence is stream open, STARTTLS, SASL PLAIN, resource bind.
type Client struct {
	jid      JID
	password string
	parser   *stream.Parser
	state    clientState

	keepalive time.Duration
	lastSent  time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithKeepalive sets the interval at which Tick emits a whitespace
// keepalive. Zero disables keepalives; the default is two minutes.
func WithKeepalive(d time.Duration) ClientOption {
	return func(c *Client) { c.keepalive = d }
}

// NewClient returns a client protocol for the given account.
func NewClient(jid JID, password string, opts ...ClientOption) *Client {
	c := &Client{
		jid:       jid,
		password:  password,
		parser:    stream.NewParser(),
		keepalive: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// JID returns the account the client was created for.
func (c *Client) JID() JID { return c.jid }

// Online reports whether stanzas can be exchanged.
func (c *Client) Online() bool { return c.state == stateOnline }

func (c *Client) header() []byte {
	var buf bytes.Buffer
	buf.WriteString("<stream:stream xmlns='jabber:client'" +
		" xmlns:stream='http://etherx.jabber.org/streams' version='1.0' from='")
	buf.WriteString(c.jid.Full())
	buf.WriteString("' to='")
	buf.WriteString(c.jid.Domainpart())
	buf.WriteString("'>")
	return buf.Bytes()
}

// Start returns the bytes that open (or, after STARTTLS, reopen) the
// stream, or nil when the protocol is past that point.
func (c *Client) Start() []byte {
	switch c.state {
	case stateConnected:
		c.state = stateStartSent
		glog.V(1).Infof("xmpp: opening stream to %s", c.jid.Domainpart())
		return append([]byte("<?xml version='1.0'?>"), c.header()...)
	case stateHandshake:
		c.state = stateSecureStartSent
		glog.V(1).Infof("xmpp: reopening stream after TLS")
		return c.header()
	}
	return nil
}

// RecvBytes hands received bytes to the protocol. Drain PollEvent
// before calling it again.
func (c *Client) RecvBytes(data []byte) {
	c.parser.Feed(data)
}

// PollEvent returns the next protocol event. A KindNone event means
// all received bytes are processed.
func (c *Client) PollEvent() (Event, error) {
	if c.state == stateError {
		return Event{}, errors.New("xmpp: stream already failed")
	}
	for {
		sev, err := c.parser.Next()
		if err != nil {
			c.state = stateError
			return Event{}, errors.WithMessage(err, "xmpp: parsing stream")
		}
		switch sev.Kind {
		case stream.KindNone:
			return Event{}, nil
		case stream.KindStreamOpen:
			ev, err := c.streamOpened(sev)
			if err != nil {
				return Event{}, err
			}
			if ev.Kind != KindNone {
				return ev, nil
			}
		case stream.KindStanza:
			ev, err := c.receiveStanza(sev.Stanza)
			if err != nil {
				return Event{}, err
			}
			if ev.Kind != KindNone {
				return ev, nil
			}
		case stream.KindStreamClose:
			glog.V(1).Info("xmpp: stream closed by peer")
			c.state = stateClosed
			return Event{Kind: KindStreamClosed}, nil
		}
	}
}

func (c *Client) streamOpened(sev stream.Event) (Event, error) {
	if sev.Name != streamTag {
		return Event{}, c.fail("unexpected stream tag <%s>", sev.Name)
	}
	switch c.state {
	case stateStartSent:
		c.state = stateStartReceived
		glog.V(1).Info("xmpp: stream accepted")
		return Event{Kind: KindStreamOpened}, nil
	case stateSecureStartSent:
		c.state = stateSecureStartReceived
		return Event{}, nil
	case stateAuthStartSent:
		c.state = stateAuthStartReceived
		return Event{}, nil
	}
	return Event{}, c.fail("stream tag in wrong state")
}

func (c *Client) receiveStanza(doc *dom.Document) (Event, error) {
	name := doc.Root().Name()
	glog.V(2).Infof("xmpp: received <%s>", name)
	switch name {
	case featuresTag:
		return c.receiveFeatures()
	case proceedTag:
		// The server agreed to STARTTLS; the stream restarts on the
		// secured transport.
		c.state = stateHandshake
		c.parser.Reset()
		return Event{Kind: KindStartTLS}, nil
	case successTag:
		c.state = stateAuthStartSent
		c.parser.Reset()
		return Event{Kind: KindSend, Data: c.header()}, nil
	case failureTag:
		return Event{}, c.fail("negotiation failed: %s", doc.String())
	case messageTag, presenceTag, iqTag:
		return Event{Kind: KindStanza, Stanza: doc}, nil
	}
	return Event{}, c.fail("unknown stanza <%s>", name)
}

func (c *Client) receiveFeatures() (Event, error) {
	switch c.state {
	case stateStartReceived:
		c.state = stateFeaturesReceived
		return Event{Kind: KindSend,
			Data: []byte("<starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>")}, nil
	case stateSecureStartReceived:
		c.state = stateSecureFeaturesReceived
		data, err := c.authPlain()
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: KindSend, Data: data}, nil
	case stateAuthStartReceived:
		c.state = stateOnline
		glog.V(1).Info("xmpp: online")
		return Event{Kind: KindSend, Data: c.bindRequest()}, nil
	}
	return Event{}, c.fail("features tag in wrong state")
}

func (c *Client) authPlain() ([]byte, error) {
	local, ok := c.jid.Localpart()
	if !ok {
		return nil, c.fail("no localpart to authenticate with")
	}
	userpass := make([]byte, 0, len(local)+len(c.password)+2)
	userpass = append(userpass, 0)
	userpass = append(userpass, local...)
	userpass = append(userpass, 0)
	userpass = append(userpass, c.password...)

	var buf bytes.Buffer
	buf.WriteString("<auth xmlns='urn:ietf:params:xml:ns:xmpp-sasl' mechanism='PLAIN'>")
	buf.WriteString(base64.StdEncoding.EncodeToString(userpass))
	buf.WriteString("</auth>")
	return buf.Bytes(), nil
}

func (c *Client) bindRequest() []byte {
	var buf bytes.Buffer
	buf.WriteString("<iq type='set' id='bind'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'>")
	if resource, ok := c.jid.Resourcepart(); ok {
		buf.WriteString("<resource>")
		buf.WriteString(resource)
		buf.WriteString("</resource>")
	}
	buf.WriteString("</bind></iq>")
	return buf.Bytes()
}

func (c *Client) fail(format string, args ...interface{}) error {
	c.state = stateError
	return errors.Errorf("xmpp: "+format, args...)
}

// SendStanza serializes a stanza for transmission. The caller still
// owns the document afterwards.
func (c *Client) SendStanza(doc *dom.Document) ([]byte, error) {
	if c.state != stateOnline {
		return nil, errors.New("xmpp: not online")
	}
	var buf bytes.Buffer
	buf.Grow(doc.Root().StrSize())
	if err := doc.Serialize(&buf); err != nil {
		return nil, errors.WithMessage(err, "xmpp: serializing stanza")
	}
	return buf.Bytes(), nil
}

// Tick drives time-based behavior. While the stream is online, the
// first call arms the timer, and once the keepalive interval has
// passed since the previous ping (or the arming call) it returns a
// whitespace ping the application should transmit; otherwise nil.
// Stanzas sent through SendStanza do not restart the interval.
func (c *Client) Tick(now time.Time) []byte {
	if c.state != stateOnline || c.keepalive == 0 {
		return nil
	}
	if c.lastSent.IsZero() {
		c.lastSent = now
		return nil
	}
	if now.Sub(c.lastSent) >= c.keepalive {
		c.lastSent = now
		glog.V(2).Info("xmpp: whitespace keepalive")
		return []byte(" ")
	}
	return nil
}
