package utils

import (
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/alecthomas/chroma/v2/styles"
)

// markEntry is the look of the selected span on top of any theme.
var markEntry = chroma.StyleEntry{
	Colour:     chroma.MustParseColour("#282A36"),
	Background: chroma.MustParseColour("#F1FA8C"),
	Bold:       chroma.Yes,
}

// PrintSource writes JavaScript source highlighted with the given chroma theme.
func PrintSource(w io.Writer, source string, theme string) error {
	return quick.Highlight(w, source, "javascript", "terminal256", theme)
}

// HighlightSpan writes source with syntax colours and the byte range [start,end) marked,
// the terminal counterpart of an editor selection.
func HighlightSpan(w io.Writer, source string, start, end int, theme string) error {
	lexer := lexers.Get("javascript")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style, err := styles.Get(theme).Builder().AddEntry(chroma.LineHighlight, markEntry).Build()
	if err != nil {
		return fmt.Errorf("failed to build highlight style: %w", err)
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return fmt.Errorf("failed to tokenise source: %w", err)
	}

	tokens := MarkTokens(iterator.Tokens(), start, end, chroma.LineHighlight)
	return formatters.TTY256.Format(w, style, chroma.Literator(tokens...))
}

// MarkTokens splits tokens at the span edges and retypes the pieces inside [start,end).
func MarkTokens(tokens []chroma.Token, start, end int, marked chroma.TokenType) []chroma.Token {
	if start >= end {
		return tokens
	}

	out := make([]chroma.Token, 0, len(tokens)+2)
	offset := 0
	for _, token := range tokens {
		tokenStart, tokenEnd := offset, offset+len(token.Value)
		offset = tokenEnd

		if tokenEnd <= start || tokenStart >= end {
			out = append(out, token)
			continue
		}

		from := max(start, tokenStart) - tokenStart
		to := min(end, tokenEnd) - tokenStart
		if from > 0 {
			out = append(out, chroma.Token{Type: token.Type, Value: token.Value[:from]})
		}
		out = append(out, chroma.Token{Type: marked, Value: token.Value[from:to]})
		if to < len(token.Value) {
			out = append(out, chroma.Token{Type: token.Type, Value: token.Value[to:]})
		}
	}
	return out
}

// MarkPlain wraps [start,end) of source with the given markers; offsets are clamped.
func MarkPlain(source string, start, end int, open, closing string) string {
	start = min(max(start, 0), len(source))
	end = min(max(end, start), len(source))
	return source[:start] + open + source[start:end] + closing + source[end:]
}
