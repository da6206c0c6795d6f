package sax

import (
	"github.com/meduketto/iksemel-go/ikserr"
)

// checkDeclaration validates a captured processing instruction when
// its target is "xml". The declaration itself is discarded; only the
// version, encoding and standalone pseudo-attributes are checked.
// Any encoding other than UTF-8 is rejected.
func (t *Tokenizer) checkDeclaration() error {
	b := t.piBuf
	if len(b) < 3 || string(b[:3]) != "xml" {
		return nil
	}
	if len(b) > 3 && !isWhitespace(b[3]) {
		// Some other target such as "xml-stylesheet".
		return nil
	}

	seenVersion := false
	seenEncoding := false
	seenStandalone := false
	pos := 3
	for {
		for pos < len(b) && isWhitespace(b[pos]) {
			pos++
		}
		if pos == len(b) {
			break
		}
		start := pos
		for pos < len(b) && b[pos] >= 'a' && b[pos] <= 'z' {
			pos++
		}
		name := string(b[start:pos])
		for pos < len(b) && isWhitespace(b[pos]) {
			pos++
		}
		if pos == len(b) || b[pos] != '=' {
			return t.fail(ikserr.BadSyntax, "malformed XML declaration")
		}
		pos++
		for pos < len(b) && isWhitespace(b[pos]) {
			pos++
		}
		if pos == len(b) || (b[pos] != '"' && b[pos] != '\'') {
			return t.fail(ikserr.BadSyntax, "malformed XML declaration")
		}
		quote := b[pos]
		pos++
		start = pos
		for pos < len(b) && b[pos] != quote {
			pos++
		}
		if pos == len(b) {
			return t.fail(ikserr.BadSyntax, "malformed XML declaration")
		}
		value := string(b[start:pos])
		pos++

		switch name {
		case "version":
			if seenVersion || seenEncoding || seenStandalone {
				return t.fail(ikserr.BadSyntax, "version must come first in XML declaration")
			}
			seenVersion = true
			if value != "1.0" && value != "1.1" {
				return t.fail(ikserr.BadSyntax, "unsupported XML version "+value)
			}
		case "encoding":
			if !seenVersion || seenEncoding || seenStandalone {
				return t.fail(ikserr.BadSyntax, "misplaced encoding in XML declaration")
			}
			seenEncoding = true
			if !encodingIsUTF8(value) {
				return t.fail(ikserr.UnsupportedEncoding, value)
			}
		case "standalone":
			if !seenVersion || seenStandalone {
				return t.fail(ikserr.BadSyntax, "misplaced standalone in XML declaration")
			}
			seenStandalone = true
			if value != "yes" && value != "no" {
				return t.fail(ikserr.BadSyntax, "standalone must be yes or no")
			}
		default:
			return t.fail(ikserr.BadSyntax, "unknown XML declaration attribute "+name)
		}
	}
	if !seenVersion {
		return t.fail(ikserr.BadSyntax, "XML declaration without version")
	}
	return nil
}

func encodingIsUTF8(v string) bool {
	if len(v) != 5 {
		return false
	}
	const want = "utf-8"
	for i := 0; i < 5; i++ {
		c := v[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != want[i] {
			return false
		}
	}
	return true
}
