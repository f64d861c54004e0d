package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNotPDF is returned for input that does not parse as a PDF file.
	ErrNotPDF = errors.New("file is not a readable PDF")
	// ErrNoText is returned when the document holds no extractable text (scans, images).
	ErrNoText = errors.New("no text found in PDF")
)

const pdfMagic = "%PDF-"

// Extract returns the plain text of every page, pages separated by newlines.
func Extract(data []byte) (text string, err error) {
	if !bytes.HasPrefix(data, []byte(pdfMagic)) {
		return "", ErrNotPDF
	}
	// The parser panics on some truncated files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	var b strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		content, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(content)
		b.WriteByte('\n')
	}

	text = strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// ExtractReader reads at most limit bytes from r and extracts its text.
func ExtractReader(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("pdf larger than %d bytes", limit)
	}
	return Extract(data)
}
