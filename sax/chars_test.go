package sax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsName(t *testing.T) {
	for _, tc := range []struct {
		name string
		want bool
	}{
		{"a", true},
		{"abc", true},
		{"a-b.c", true},
		{"_x", true},
		{":ns", true},
		{"stream:stream", true},
		{"é", true},
		{"名前", true},
		{"a1", true},
		{"", false},
		{"1a", false},
		{"-a", false},
		{".a", false},
		{"a b", false},
		{"a<b", false},
		{"a&b", false},
		{"\xff\xfe", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsName(tc.name))
		})
	}
}

func TestCharClasses(t *testing.T) {
	ck := assert.New(t)

	ck.True(isChar('\t'))
	ck.True(isChar('\n'))
	ck.True(isChar('\r'))
	ck.True(isChar(' '))
	ck.True(isChar(0x10ffff))
	ck.False(isChar(0x00))
	ck.False(isChar(0x0b))
	ck.False(isChar(0xd800))
	ck.False(isChar(0xdfff))
	ck.False(isChar(0xffff))
	ck.False(isChar(0x110000))

	ck.True(isNameStartChar('A'))
	ck.True(isNameStartChar('_'))
	ck.True(isNameStartChar(':'))
	ck.False(isNameStartChar('-'))
	ck.False(isNameStartChar('0'))
	ck.True(isNameChar('-'))
	ck.True(isNameChar('.'))
	ck.True(isNameChar('7'))
	ck.False(isNameChar('<'))
	ck.False(isNameChar(' '))
}

func TestAppendRune(t *testing.T) {
	ck := assert.New(t)
	for _, r := range []rune{'a', 0xe9, 0x2764, 0x1f600} {
		ck.Equal(string(r), string(appendRune(nil, r)))
	}
}
