package slug

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "Hello World", want: "hello-world"},
		{name: "punctuation", in: "Go: tips & tricks!", want: "go-tips-tricks"},
		{name: "collapse separators", in: "  a -- b __ c  ", want: "a-b-c"},
		{name: "trim dashes", in: "--edge--", want: "edge"},
		{name: "digits", in: "Top 10 Tools", want: "top-10-tools"},
		{name: "non ascii dropped", in: "Café Über", want: "caf-ber"},
		{name: "nothing usable", in: "知识库", want: Fallback},
		{name: "empty", in: "", want: Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.in))
		})
	}
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{"guide": true, "guide-1": true}

	got, err := Unique("guide", func(s string) (bool, error) { return taken[s], nil })
	require.NoError(t, err)
	assert.Equal(t, "guide-2", got)

	got, err = Unique("fresh", func(s string) (bool, error) { return taken[s], nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestUniquePropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Unique("guide", func(string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
