package xmpp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJID(t *testing.T) {
	for _, tc := range []struct {
		input    string
		full     string
		bare     string
		local    string
		domain   string
		resource string
	}{
		{
			input:  "example.com",
			full:   "example.com",
			bare:   "example.com",
			domain: "example.com",
		},
		{
			input:  "alice@example.com",
			full:   "alice@example.com",
			bare:   "alice@example.com",
			local:  "alice",
			domain: "example.com",
		},
		{
			input:    "alice@example.com/home",
			full:     "alice@example.com/home",
			bare:     "alice@example.com",
			local:    "alice",
			domain:   "example.com",
			resource: "home",
		},
		{
			input:    "example.com/res",
			full:     "example.com/res",
			bare:     "example.com",
			domain:   "example.com",
			resource: "res",
		},
		{
			// The resourcepart may contain '@' and '/'.
			input:    "a@b.c/x@y/z",
			full:     "a@b.c/x@y/z",
			bare:     "a@b.c",
			local:    "a",
			domain:   "b.c",
			resource: "x@y/z",
		},
		{
			// A trailing domain dot is dropped per RFC 7622.
			input:  "alice@example.com.",
			full:   "alice@example.com",
			bare:   "alice@example.com",
			local:  "alice",
			domain: "example.com",
		},
	} {
		t.Run(tc.input, func(t *testing.T) {
			ck := assert.New(t)
			jid, err := ParseJID(tc.input)
			require.NoError(t, err)
			ck.Equal(tc.full, jid.Full())
			ck.Equal(tc.full, jid.String())
			ck.Equal(tc.bare, jid.Bare())
			ck.Equal(tc.domain, jid.Domainpart())
			local, hasLocal := jid.Localpart()
			ck.Equal(tc.local != "", hasLocal)
			ck.Equal(tc.local, local)
			resource, hasResource := jid.Resourcepart()
			ck.Equal(tc.resource != "", hasResource)
			ck.Equal(tc.resource, resource)
			ck.Equal(tc.resource == "", jid.IsBare())
		})
	}
}

func TestParseJIDErrors(t *testing.T) {
	long := strings.Repeat("x", 1024)
	for _, input := range []string{
		"",
		"@example.com",
		"alice@",
		"alice@example.com/",
		"/resource",
		long + "@example.com",
		"alice@" + long,
		"alice@example.com/" + long,
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseJID(input)
			assert.Error(t, err)
		})
	}
}

func TestJIDWithResource(t *testing.T) {
	ck := assert.New(t)

	jid, err := ParseJID("alice@example.com")
	require.NoError(t, err)
	withRes, err := jid.WithResource("work")
	require.NoError(t, err)
	ck.Equal("alice@example.com/work", withRes.Full())
	ck.False(withRes.IsBare())

	// Replacing an existing resource.
	replaced, err := withRes.WithResource("play")
	require.NoError(t, err)
	ck.Equal("alice@example.com/play", replaced.Full())
	local, ok := replaced.Localpart()
	ck.True(ok)
	ck.Equal("alice", local)
	ck.Equal("example.com", replaced.Domainpart())

	_, err = jid.WithResource("")
	ck.Error(err)
}
