/*
Package iksemel is a set of XML processing libraries oriented toward the
XMPP wire format and resource constrained use.

Doing the heavy lifting of incremental tokenization, document tree
building and stanza framing, these libraries allow easy XMPP client
development as well as general XML processing.

The sax package turns arbitrary byte chunks into XML events without ever
holding a full document. The dom package builds an arena backed document
tree navigated and edited through light cursors. The stream package cuts
an open-ended XMPP byte stream into top-level stanza documents, and the
xmpp package consumes those stanzas in a sans-IO client protocol state
machine that leaves all socket handling to the application.

Only UTF-8 input is accepted. DTDs are skipped but never honored, and
comments and processing instructions are consumed without being surfaced.

See the stream and xmpp sub-directories for more information about
framing and protocol operation.
*/
package iksemel
