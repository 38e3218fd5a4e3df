package token

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// TagEmpty marks a token that has never referenced a stored session.
	TagEmpty = "e"
	// TagCached marks a token whose session has been written at least once.
	TagCached = "c"
)

const guidLength = 36 // canonical uuid text form

// Token is the decoded session token. The zero value is not valid; use
// [New] or [Decode].
//
// Token instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Token struct {
	Tag  string
	GUID uuid.UUID
}

// New mints a fresh empty-tagged token with a random UUID.
func New() Token {
	return Token{Tag: TagEmpty, GUID: uuid.New()}
}

// Decode parses a raw client-supplied token. Absent input, a malformed
// grammar, an unknown tag, or a non-canonical UUID all yield a freshly
// minted empty token — decode never fails.
//
//	Docs: docs/token.md
func Decode(raw string) Token {
	tag, rest, ok := strings.Cut(raw, "+")
	if !ok {
		return New()
	}
	if tag != TagEmpty && tag != TagCached {
		return New()
	}
	if len(rest) != guidLength {
		return New()
	}

	guid, err := uuid.Parse(rest)
	if err != nil {
		return New()
	}

	return Token{Tag: tag, GUID: guid}
}

// MarkCached returns a token with the same UUID and the tag forced to
// cached. Called when a session transitions from candidate to written.
func MarkCached(t Token) Token {
	t.Tag = TagCached
	return t
}

// Cached reports whether the token carries the cached tag.
func (t Token) Cached() bool {
	return t.Tag == TagCached
}

// String renders the wire form "<tag>+<uuid>".
func (t Token) String() string {
	return t.Tag + "+" + t.GUID.String()
}
