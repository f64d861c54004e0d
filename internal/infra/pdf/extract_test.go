package pdf

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractRejectsNonPDF(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("just some notes"),
		"truncated": []byte("%PDF-1.4\n1 0 obj\n<<"),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Extract(data); !errors.Is(err, ErrNotPDF) {
				t.Fatalf("expected ErrNotPDF, got %v", err)
			}
		})
	}
}

func TestExtractReaderEnforcesLimit(t *testing.T) {
	_, err := ExtractReader(strings.NewReader("%PDF-"+strings.Repeat("x", 64)), 16)
	if err == nil || !strings.Contains(err.Error(), "larger than") {
		t.Fatalf("expected size error, got %v", err)
	}
}
