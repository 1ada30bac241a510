package store

import (
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// classifierSampleSize caps how much of a buffer the binary heuristic
// inspects.
const classifierSampleSize = 100

// IsBinaryContent decides whether a byte buffer holds binary data,
// sampling at most the first 100 bytes. The check exists purely for the
// editor: detection is a best guess and false positives are possible.
// Empty buffers count as text.
func IsBinaryContent(buffer []byte) bool {
	if len(buffer) == 0 {
		return false
	}
	sample := buffer
	if len(sample) > classifierSampleSize {
		sample = sample[:classifierSampleSize]
	}
	for m := mimetype.Detect(sample); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return false
		}
	}
	return true
}

// decodeFileContent turns a watcher buffer into mirror text. Invalid
// encodings downgrade silently to empty content rather than failing the
// event.
func decodeFileContent(buffer []byte) string {
	if len(buffer) == 0 {
		return ""
	}
	if !utf8.Valid(buffer) {
		return ""
	}
	return string(buffer)
}
