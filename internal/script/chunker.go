// Package script splits narration scripts into pieces small enough for a
// single speech synthesis call.
package script

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkSize is the largest chunk, in characters, sent to the
// synthesizer. Longer inputs get cut off mid-sentence by the upstream model.
const DefaultMaxChunkSize = 4000

// SplitScript splits text on line boundaries, packing consecutive lines into
// chunks of at most maxChunkSize characters. A line keeps its trailing
// newline, so strings.Join(chunks, "") == text. A single line longer than
// maxChunkSize is cut hard at character boundaries. Empty text yields no
// chunks; a non-positive maxChunkSize yields the text as one chunk.
func SplitScript(text string, maxChunkSize int) []string {
	if text == "" {
		return nil
	}
	if maxChunkSize <= 0 {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		n := utf8.RuneCountInString(line)
		if size+n <= maxChunkSize {
			current.WriteString(line)
			size += n
			continue
		}
		flush()
		if n <= maxChunkSize {
			current.WriteString(line)
			size = n
			continue
		}
		pieces := hardCut(line, maxChunkSize)
		chunks = append(chunks, pieces[:len(pieces)-1]...)
		last := pieces[len(pieces)-1]
		current.WriteString(last)
		size = utf8.RuneCountInString(last)
	}
	flush()
	return chunks
}

// hardCut splits s into consecutive pieces of at most max runes.
func hardCut(s string, max int) []string {
	var pieces []string
	for s != "" {
		end, count := 0, 0
		for end < len(s) && count < max {
			_, w := utf8.DecodeRuneInString(s[end:])
			end += w
			count++
		}
		pieces = append(pieces, s[:end])
		s = s[end:]
	}
	return pieces
}
