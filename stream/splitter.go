package stream

import (
	"bufio"
	"io"

	"github.com/meduketto/iksemel-go/sax"
)

// SplitStanzas returns a bufio.SplitFunc that cuts an XMPP stream
// into raw byte tokens: first the stream header, then one token per
// top-level stanza, and finally the stream end tag.
//
// streamClosed, if non-nil, is called when the end tag of the outer
// stream element is recognized.
//
// The splitter drives its own tokenizer over the scanned bytes, so
// the cuts respect comments, CDATA sections and attribute values; a
// '>' inside character data never ends a stanza.
func SplitStanzas(streamClosed func()) bufio.SplitFunc {
	tok := sax.NewTokenizer()
	var (
		fed       int   // window bytes already tokenized
		bounds    []int // pending token ends within the window; -1 is unresolved
		closes    []bool
		needGT    = -1 // scan offset for the '>' of an open end tag
		needGTIdx = -1 // index of the unresolved entry in bounds
		depth     int
		seen      bool
		closed    bool
		failed    error
	)

	isWS := func(c byte) bool {
		return c == ' ' || c == '\t' || c == '\r' || c == '\n'
	}

	pop := func(data []byte) (int, []byte, error) {
		end := bounds[0]
		isClose := closes[0]
		bounds = bounds[1:]
		closes = closes[1:]
		for i := range bounds {
			if bounds[i] >= 0 {
				bounds[i] -= end
			}
		}
		fed -= end
		if needGT >= 0 {
			needGT -= end
		}
		if needGTIdx >= 0 {
			needGTIdx--
		}
		if isClose {
			closed = true
			if streamClosed != nil {
				streamClosed()
			}
		}
		return end, data[:end], nil
	}

	return func(data []byte, atEOF bool) (int, []byte, error) {
		if failed != nil {
			return 0, nil, failed
		}
		if len(bounds) > 0 && bounds[0] >= 0 {
			return pop(data)
		}
		// A boundary may be waiting for the '>' of an end tag
		// written as "</name >"; newly arrived bytes can resolve it.
		if needGT >= 0 {
			for needGT < len(data) {
				c := data[needGT]
				if c == '>' {
					bounds[needGTIdx] = needGT + 1
					needGT = -1
					needGTIdx = -1
					break
				}
				if !isWS(c) {
					// The tokenizer will reject this byte below.
					break
				}
				needGT++
			}
		}
		if fed < len(data) {
			seen = true
			base := fed
			tok.Feed(data[base:])
			for {
				ev, err := tok.Next()
				if err != nil {
					failed = err
					return 0, nil, err
				}
				if ev.Kind == sax.KindNone {
					break
				}
				boundary := false
				isClose := false
				switch ev.Kind {
				case sax.KindStartTagOpen:
					depth++
				case sax.KindStartTagContent:
					boundary = depth == 1
				case sax.KindStartTagEmpty:
					depth--
					boundary = depth <= 1
					isClose = depth == 0
				case sax.KindEndTag:
					depth--
					boundary = depth <= 1
					isClose = depth == 0
				}
				if !boundary {
					continue
				}
				end := base + tok.Consumed()
				if data[end-1] != '>' {
					// "</name >": find the real end of the tag.
					j := end
					for j < len(data) && isWS(data[j]) {
						j++
					}
					if j < len(data) && data[j] == '>' {
						end = j + 1
					} else {
						bounds = append(bounds, -1)
						closes = append(closes, isClose)
						needGT = j
						needGTIdx = len(bounds) - 1
						continue
					}
				}
				bounds = append(bounds, end)
				closes = append(closes, isClose)
			}
			fed = len(data)
		}
		if len(bounds) > 0 && bounds[0] >= 0 {
			return pop(data)
		}
		if atEOF {
			if seen && !closed {
				return 0, nil, io.ErrUnexpectedEOF
			}
			return 0, nil, nil
		}
		return 0, nil, nil
	}
}

// NewScanner returns a bufio.Scanner over r that yields the stream
// header, each stanza and the stream end tag as separate tokens.
func NewScanner(r io.Reader, streamClosed func()) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, scannerBufferSize), scannerBufferSize)
	s.Split(SplitStanzas(streamClosed))
	return s
}

const scannerBufferSize = 64 * 1024
