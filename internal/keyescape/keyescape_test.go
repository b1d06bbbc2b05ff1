package keyescape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"1234567890@s.whatsapp.net",
		"120363012345678901@g.us",
		"no-dots-here",
		"",
		"...",
		"a~b.c~d.e",
	}
	for _, c := range cases {
		assert.Equal(t, c, Decode(Encode(c)), "round trip for %q", c)
	}
}

func TestEncodeSurvivesDots(t *testing.T) {
	encoded := Encode("1234567890@s.whatsapp.net")
	assert.NotContains(t, encoded, ".")
	assert.Contains(t, encoded, "~")
}

func TestEncodeDecodeMap(t *testing.T) {
	m := map[string]int{"a.b": 1, "c.d": 2}
	enc := EncodeMap(m)
	assert.Equal(t, 1, enc["a~b"])
	dec := DecodeMap(enc)
	assert.Equal(t, m, dec)
}
