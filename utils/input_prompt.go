package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/meysamhadeli/astview/constants/lipgloss"
)

// ConfirmPrompt asks a yes/no question and reports whether the answer was yes.
func ConfirmPrompt(w io.Writer, reader *bufio.Reader, question string) bool {
	fmt.Fprint(w, lipgloss.BlueSky.Render(question+" (y/N): "))

	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// ReadSource reads the whole of r, giving up when ctx is cancelled.
func ReadSource(ctx context.Context, r io.Reader) (string, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		data, err := io.ReadAll(r)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("error reading input: %w", res.err)
		}
		return string(res.data), nil
	}
}
