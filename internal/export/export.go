// Package export writes a stored summary as a printable A4 PDF.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/clarity/internal/history"
	"github.com/hyperifyio/clarity/internal/normalize"
)

const (
	font      = "Helvetica"
	bodySize  = 11.0
	lineH     = 5.5
	cardWidth = 180.0
)

// WritePDF renders e to w: title, source link, TL;DR, numbered takeaways,
// a meta line, tags, entities and, when cardPNG is non-empty, the share card.
func WritePDF(w io.Writer, e history.Entry, cardPNG []byte) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(e.Title, true)
	pdf.SetCreator("Clarity", true)
	if e.Timestamp != 0 {
		pdf.SetCreationDate(e.Time())
	}
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	s := e.Summary.Canonical()

	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = "Untitled"
	}
	pdf.SetFont(font, "B", 16)
	pdf.MultiCell(0, 8, tr(title), "", "L", false)

	if e.URL != "" {
		pdf.SetFont(font, "", 9)
		pdf.SetTextColor(0x33, 0x66, 0xcc)
		pdf.WriteLinkString(lineH, tr(e.URL), e.URL)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(lineH + 2)
	}

	heading(pdf, "TL;DR")
	pdf.SetFont(font, "", 13)
	pdf.MultiCell(0, 6.5, tr(s.TLDR), "", "L", false)

	if len(s.KeyTakeaways) > 0 {
		heading(pdf, "Key takeaways")
		pdf.SetFont(font, "", bodySize)
		for i, pt := range s.KeyTakeaways {
			pdf.MultiCell(0, lineH, tr(fmt.Sprintf("%02d  %s", i+1, pt)), "", "L", false)
			pdf.Ln(1)
		}
	}

	if meta := MetaLine(s); meta != "" {
		heading(pdf, "About")
		pdf.SetFont(font, "", bodySize)
		pdf.MultiCell(0, lineH, tr(meta), "", "L", false)
	}

	if len(s.Tags) > 0 {
		tags := make([]string, 0, len(s.Tags))
		for _, t := range s.Tags {
			tags = append(tags, normalize.Hashtag(t))
		}
		heading(pdf, "Tags")
		pdf.SetFont(font, "", bodySize)
		pdf.MultiCell(0, lineH, tr(strings.Join(tags, " ")), "", "L", false)
	}

	entityBlock(pdf, tr, "People", s.Entities.People)
	entityBlock(pdf, tr, "Companies", s.Entities.Companies)
	entityBlock(pdf, tr, "Products", s.Entities.Products)

	if len(cardPNG) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("card", opts, bytes.NewReader(cardPNG))
		pdf.Ln(6)
		pdf.ImageOptions("card", -1, -1, cardWidth, 0, true, opts, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// MetaLine joins type, tone and confidence: "News · Neutral · 80%".
func MetaLine(s normalize.Summary) string {
	parts := []string{}
	if s.ArticleType != "" {
		parts = append(parts, s.ArticleType)
	}
	if s.Tone.Primary != "" {
		parts = append(parts, s.Tone.Primary)
	}
	if s.Tone.ConfidenceScore != nil {
		parts = append(parts, strconv.FormatFloat(*s.Tone.ConfidenceScore, 'f', -1, 64)+"%")
	}
	return strings.Join(parts, " · ")
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.Ln(3)
	pdf.SetFont(font, "B", 10)
	pdf.SetTextColor(0x55, 0x55, 0x55)
	pdf.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func entityBlock(pdf *gofpdf.Fpdf, tr func(string) string, label string, list []normalize.Entity) {
	if len(list) == 0 {
		return
	}
	heading(pdf, label)
	pdf.SetFont(font, "", bodySize)
	for _, e := range list {
		line := e.Name
		if e.Context != "" {
			line += " - " + e.Context
		}
		pdf.MultiCell(0, lineH, tr(line), "", "L", false)
	}
}
