package store

import (
	"bytes"
	"testing"
)

func TestIsBinaryContent(t *testing.T) {
	tests := []struct {
		name   string
		buffer []byte
		binary bool
	}{
		{name: "empty is text", buffer: nil, binary: false},
		{name: "plain ascii", buffer: []byte("hello world\n"), binary: false},
		{name: "utf8 text", buffer: []byte("héllo wörld"), binary: false},
		{name: "json", buffer: []byte(`{"a": 1}`), binary: false},
		{name: "null bytes", buffer: []byte{0x00, 0xFF, 0x10}, binary: true},
		{name: "png header", buffer: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}, binary: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBinaryContent(tt.buffer); got != tt.binary {
				t.Errorf("IsBinaryContent(%v) = %v, want %v", tt.buffer, got, tt.binary)
			}
		})
	}
}

func TestIsBinaryContentSamplesFirstWindowOnly(t *testing.T) {
	// Text in the sampled window, garbage beyond it: the verdict must come
	// from the window alone.
	buf := append(bytes.Repeat([]byte("a"), classifierSampleSize), 0x00, 0xFF)
	if IsBinaryContent(buf) {
		t.Error("bytes past the sample window must not affect classification")
	}
}

func TestDecodeFileContent(t *testing.T) {
	if got := decodeFileContent([]byte("hello")); got != "hello" {
		t.Errorf("decodeFileContent = %q, want hello", got)
	}
	if got := decodeFileContent(nil); got != "" {
		t.Errorf("decodeFileContent(nil) = %q, want empty", got)
	}
	// Invalid UTF-8 downgrades to empty, never errors.
	if got := decodeFileContent([]byte{0xFF, 0xFE, 0xFD}); got != "" {
		t.Errorf("decodeFileContent(invalid) = %q, want empty", got)
	}
}
