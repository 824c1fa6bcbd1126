package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/contactharvest/internal/contact"
)

// ErrFontRequired is returned when a PDF export has no CJK font configured.
// The core PDF fonts cannot encode Chinese labels.
var ErrFontRequired = errors.New("pdf export requires a TrueType font with CJK glyphs (export.fontPath)")

const pdfFont = "cjk"

// PDF renders the plain-text blocks onto A4 pages using the font at
// opts.FontPath.
func PDF(records []contact.Contact, opts Options) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	if strings.TrimSpace(opts.FontPath) == "" {
		return nil, ErrFontRequired
	}
	if _, err := os.Stat(opts.FontPath); err != nil {
		return nil, fmt.Errorf("pdf font: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8Font(pdfFont, "", opts.FontPath)
	pdf.SetFont(pdfFont, "", 11)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	pdf.AddPage()
	pdf.SetFont(pdfFont, "", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s (%d)", FilePrefix, len(records)), "", 1, "L", false, 0, "")
	pdf.SetFont(pdfFont, "", 11)
	pdf.Ln(2)

	for _, block := range textBlocks(records, opts) {
		for _, line := range strings.Split(block, "\n") {
			if line == Separator {
				pdf.Ln(2)
				continue
			}
			pdf.MultiCell(0, 6, line, "", "L", false)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
