package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLink(t *testing.T) {
	cases := map[string]string{
		"example.com/job":          "https://example.com/job",
		"http://x.com":             "http://x.com",
		"https://x.com/a?b=c":      "https://x.com/a?b=c",
		"":                         "",
		"ftp.example.com/openings": "https://ftp.example.com/openings",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLink(in), in)
	}
}

func TestNormalizeLink_DoesNotTouchStoredValue(t *testing.T) {
	stored := "example.com/job"
	_ = NormalizeLink(stored)
	assert.Equal(t, "example.com/job", stored)
}
