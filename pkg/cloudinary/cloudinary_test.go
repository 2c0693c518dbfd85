package cloudinary

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublicIDKeepsReadableStem(t *testing.T) {
	id := PublicID("../Lab Report (final).pdf")
	require.Regexp(t, `^Lab-Report--final-[0-9a-f]{8}$`, id)
	require.NotEqual(t, id, PublicID("../Lab Report (final).pdf"))
}

func TestPublicIDFallsBackForEmptyStem(t *testing.T) {
	require.Regexp(t, `^attachment-[0-9a-f]{8}$`, PublicID("???.zip"))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.ErrorIs(t, err, ErrMissingCredentials)
}
