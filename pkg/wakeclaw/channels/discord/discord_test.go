package discord

import (
	"strings"
	"testing"
)

func TestSplitMessageShortTextUntouched(t *testing.T) {
	chunks := splitMessage("hello", 20)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("chunks = %v, want the text as-is", chunks)
	}
}

func TestSplitMessageRespectsMaxLen(t *testing.T) {
	text := strings.Repeat("a", 45)
	chunks := splitMessage(text, 20)

	var rebuilt strings.Builder
	for i, c := range chunks {
		if len(c) > 20 {
			t.Errorf("chunk %d length = %d, exceeds max 20", i, len(c))
		}
		rebuilt.WriteString(c)
	}
	if rebuilt.String() != text {
		t.Error("concatenated chunks do not reproduce the input")
	}
}

func TestSplitMessagePrefersNewlineCut(t *testing.T) {
	// The newline sits past the halfway point of the first window, so the
	// split happens there instead of mid-word.
	text := strings.Repeat("x", 15) + "\n" + strings.Repeat("y", 10)
	chunks := splitMessage(text, 20)

	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Errorf("first chunk %q should end at the newline", chunks[0])
	}
	if chunks[1] != strings.Repeat("y", 10) {
		t.Errorf("second chunk = %q", chunks[1])
	}
}

func TestSplitMessageIgnoresEarlyNewline(t *testing.T) {
	// A newline before the halfway point is a bad cut; the chunk fills up
	// to the limit instead.
	text := "ab\n" + strings.Repeat("z", 30)
	chunks := splitMessage(text, 20)

	if len(chunks[0]) != 20 {
		t.Errorf("first chunk length = %d, want the full 20", len(chunks[0]))
	}
}
