package xmpp

// Well known XMPP ports.
const (
	// ClientPort is the standard client-to-server port.
	ClientPort = 5222
	// ServerPort is the standard server-to-server port.
	ServerPort = 5269
)

const (
	streamTag   = "stream:stream"
	featuresTag = "stream:features"
	proceedTag  = "proceed"
	successTag  = "success"
	failureTag  = "failure"
	messageTag  = "message"
	presenceTag = "presence"
	iqTag       = "iq"
)
