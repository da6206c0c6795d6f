package ikserr

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	for _, tc := range []struct {
		err  *Error
		want string
	}{
		{New(BadChar), "bad-char"},
		{New(BadEntity, Msg("&unknown;")), "bad-entity: &unknown;"},
		{New(TagMismatch, At(12, 0, 12)), "tag-mismatch at line 1 column 12 (byte 12)"},
		{New(UnexpectedEof, Msg("inside comment"), At(3, 2, 1)),
			"unexpected-eof: inside comment at line 3 column 1 (byte 3)"},
	} {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestKindMatching(t *testing.T) {
	ck := assert.New(t)

	err := New(DuplicateAttribute, Msg("id"), At(40, 0, 40))
	ck.True(errors.Is(err, New(DuplicateAttribute)))
	ck.False(errors.Is(err, New(BadSyntax)))

	wrapped := pkgerrors.WithMessage(err, "parsing stanza")
	ck.True(errors.Is(wrapped, New(DuplicateAttribute)))

	kind, ok := KindOf(wrapped)
	ck.True(ok)
	ck.Equal(DuplicateAttribute, kind)

	_, ok = KindOf(errors.New("plain"))
	ck.False(ok)
}

func TestKindStrings(t *testing.T) {
	ck := assert.New(t)
	for kind, want := range map[Kind]string{
		UnsupportedEncoding: "unsupported-encoding",
		BadUtf8:             "bad-utf8",
		BadChar:             "bad-char",
		BadEntity:           "bad-entity",
		BadSyntax:           "bad-syntax",
		TagMismatch:         "tag-mismatch",
		UnexpectedEof:       "unexpected-eof",
		NoRoot:              "no-root",
		JunkAfterRoot:       "junk-after-root",
		DuplicateAttribute:  "duplicate-attribute",
		NoMemory:            "no-memory",
		InvalidName:         "invalid-name",
		TreeCycle:           "tree-cycle",
		Detached:            "detached",
	} {
		ck.Equal(want, kind.String())
	}
	ck.Equal("Kind(99)", Kind(99).String())
}
