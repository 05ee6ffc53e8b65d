package script

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitScriptRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"single line without newline",
		"Speaker1: hello\nSpeaker2: hi\n",
		"\n\n\nleading blank lines",
		"教授: こんにちは。\n学生: よろしくお願いします。\n" + strings.Repeat("長い段落です。", 40),
		strings.Repeat("a", 25) + "\n" + strings.Repeat("b", 3),
		"trailing\n\n",
	}
	for _, in := range inputs {
		for _, size := range []int{1, 3, 10, 64, 4000} {
			chunks := SplitScript(in, size)
			if got := strings.Join(chunks, ""); got != in {
				t.Fatalf("size %d: round trip mismatch for %q: got %q", size, in, got)
			}
			for _, c := range chunks {
				if c == "" {
					t.Fatalf("size %d: empty chunk for %q", size, in)
				}
				if n := utf8.RuneCountInString(c); n > size {
					t.Fatalf("size %d: chunk of %d characters: %q", size, n, c)
				}
			}
		}
	}
}

func TestSplitScriptExactlyMaxIsOneChunk(t *testing.T) {
	text := strings.Repeat("x", 99) + "\n"
	chunks := SplitScript(text, 100)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	text = strings.Repeat("あ", DefaultMaxChunkSize)
	if chunks := SplitScript(text, DefaultMaxChunkSize); len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for a %d character script, got %d", DefaultMaxChunkSize, len(chunks))
	}
}

func TestSplitScriptPrefersLineBoundaries(t *testing.T) {
	text := "aaaa\nbbbb\ncccc\n"
	chunks := SplitScript(text, 10)
	want := []string{"aaaa\nbbbb\n", "cccc\n"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %q, got %q", want, chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplitScriptHardCutsLongLine(t *testing.T) {
	text := strings.Repeat("z", 25)
	chunks := SplitScript(text, 10)
	if len(chunks) != 3 || chunks[2] != "zzzzz" {
		t.Fatalf("unexpected chunks %q", chunks)
	}
}

func TestSplitScriptNonPositiveLimit(t *testing.T) {
	if chunks := SplitScript("abc\ndef", 0); len(chunks) != 1 {
		t.Fatalf("expected whole text, got %q", chunks)
	}
}
