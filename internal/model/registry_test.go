package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownModels(t *testing.T) {
	for prefix, want := range registry {
		d, err := Lookup(prefix + "00000000")
		require.NoError(t, err)
		assert.Equal(t, want, d)
	}
}

func TestLookupUnknownModel(t *testing.T) {
	d, err := Lookup("999900000000")
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Equal(t, Descriptor{Name: "unknown", Fragments: 1, Decoder: DecoderPassThrough}, d)
}

func TestLookupTooShort(t *testing.T) {
	_, err := Lookup("12")
	assert.ErrorIs(t, err, ErrUnknownModel)
}
