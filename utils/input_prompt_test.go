package utils

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmPrompt(t *testing.T) {
	cases := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"yes":   true,
	}
	for input, want := range cases {
		var out bytes.Buffer
		got := ConfirmPrompt(&out, bufio.NewReader(strings.NewReader(input)), "Delete?")
		assert.Equal(t, want, got, "input %q", input)
		assert.Contains(t, out.String(), "Delete?")
	}
}

func TestReadSource(t *testing.T) {
	text, err := ReadSource(context.Background(), strings.NewReader("let a;"))
	require.NoError(t, err)
	assert.Equal(t, "let a;", text)

	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReadSource(ctx, pr)
	assert.ErrorIs(t, err, context.Canceled)
}
