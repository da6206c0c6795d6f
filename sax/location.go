package sax

import "fmt"

// Location is a position within the input fed to a Tokenizer.
// Lines and Column are zero based; Column counts bytes, not runes.
type Location struct {
	Bytes  int
	Lines  int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("line %d column %d (byte %d)", l.Lines+1, l.Column, l.Bytes)
}
