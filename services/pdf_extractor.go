package services

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

const maxPDFBytes = 50 << 20

var multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)

// ExtractPDFText pulls the plain text out of a PDF on disk and returns it
// with the page count. Scanned or image-only PDFs come back empty, which the
// caller treats as an ingestion failure.
func ExtractPDFText(filePath string) (string, int, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat pdf: %w", err)
	}
	if stat.Size() > maxPDFBytes {
		return "", 0, fmt.Errorf("pdf too large for in-memory extraction (%d bytes)", stat.Size())
	}

	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", 0, fmt.Errorf("failed to read pdf text: %w", err)
	}

	text := normalizePDFText(buf.String())
	if strings.TrimSpace(text) == "" {
		return "", reader.NumPage(), fmt.Errorf("pdf contains no extractable text")
	}
	return text, reader.NumPage(), nil
}

func normalizePDFText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Join(out, "\n")
}
