package document

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	abstractScanPages = 5
	keywordScanPages  = 3
	fallbackMaxWords  = 200
	ocrThreshold      = 150
)

// OCR recognizes text in a rendered page image.
type OCR interface {
	Recognize(img image.Image) (string, error)
}

// Metadata is what the extractor pulls out of an uploaded document.
type Metadata struct {
	Title    string
	Abstract string
	Keywords string // raw explicit keyword line, may be empty
}

// Extractor derives a title, an abstract and an optional explicit
// keyword line from a document, cascading from structured metadata
// through text layout to OCR.
type Extractor struct {
	ocr OCR
}

func NewExtractor(ocr OCR) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract runs the metadata cascade on the file at path. OCR and
// per-page failures degrade to the next strategy; only a file that
// cannot be opened at all is an error.
func (e *Extractor) Extract(ctx context.Context, path string) (Metadata, error) {
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		return e.extractPDF(ctx, path)
	}
	return e.extractPlain(path)
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (Metadata, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	var md Metadata
	md.Title = strings.TrimSpace(doc.Metadata()["title"])

	limit := doc.NumPage()
	if limit > abstractScanPages {
		limit = abstractScanPages
	}

	texts := make([]string, limit)
	for i := 0; i < limit; i++ {
		text, err := doc.Text(i)
		if err != nil {
			ctxzap.Warn(ctx, "page text extraction failed",
				zap.Int("page", i+1), zap.Error(err))
			continue
		}
		texts[i] = text
	}

	for i := 0; i < limit; i++ {
		text := texts[i]
		if strings.TrimSpace(text) != "" {
			if md.Title == "" {
				md.Title = firstNonBlankLine(text)
			}
			if abstract, ok := scanAbstract(text); ok {
				md.Abstract = abstract
				break
			}
			continue
		}

		// Page yielded no text: render it and try OCR.
		ocrText := e.ocrPage(ctx, doc, i)
		if abstract, ok := scanAbstract(ocrText); ok {
			md.Abstract = abstract
			break
		}
	}

	// Explicit keyword lines are scanned independently of the
	// abstract cascade; the first match short-circuits.
	kwLimit := limit
	if kwLimit > keywordScanPages {
		kwLimit = keywordScanPages
	}
	for i := 0; i < kwLimit; i++ {
		if kw, ok := scanKeywordLine(texts[i]); ok {
			md.Keywords = kw
			break
		}
	}

	if md.Abstract == "" && limit > 0 {
		md.Abstract = firstParagraph(texts[0], fallbackMaxWords)
	}
	return md, nil
}

func (e *Extractor) extractPlain(path string) (Metadata, error) {
	var text string
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".docx" {
		text, err = readWord(path)
	} else {
		var raw []byte
		raw, err = os.ReadFile(path)
		text = string(raw)
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("open document: %w", err)
	}

	md := Metadata{Title: firstNonBlankLine(text)}
	if abstract, ok := scanAbstract(text); ok {
		md.Abstract = abstract
	} else {
		md.Abstract = firstParagraph(text, fallbackMaxWords)
	}
	if kw, ok := scanKeywordLine(text); ok {
		md.Keywords = kw
	}
	return md, nil
}

func (e *Extractor) ocrPage(ctx context.Context, doc *fitz.Document, page int) string {
	if e.ocr == nil {
		return ""
	}
	img, err := doc.Image(page)
	if err != nil {
		ctxzap.Warn(ctx, "page render failed", zap.Int("page", page+1), zap.Error(err))
		return ""
	}

	text, err := e.ocr.Recognize(preprocessForOCR(img))
	if err != nil {
		ctxzap.Warn(ctx, "ocr failed", zap.Int("page", page+1), zap.Error(err))
		return ""
	}
	return text
}

// preprocessForOCR converts a page render to grayscale and applies a
// fixed binary threshold to sharpen glyph edges for recognition.
func preprocessForOCR(src image.Image) image.Image {
	gray := imaging.Grayscale(src)
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			level := color.GrayModel.Convert(gray.At(x, y)).(color.Gray).Y
			if level > ocrThreshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

func firstNonBlankLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var abstractRe = regexp.MustCompile(`(?i)abstract`)

// scanAbstract returns everything after the first case-insensitive
// "abstract" token up to the next blank-line paragraph break.
func scanAbstract(text string) (string, bool) {
	loc := abstractRe.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	section := strings.TrimSpace(text[loc[1]:])
	if para, _, found := strings.Cut(section, "\n\n"); found {
		section = para
	}
	section = strings.TrimSpace(section)
	if section == "" {
		return "", false
	}
	return section, true
}

var keywordLineRe = regexp.MustCompile(`(?i)^[ \t]*key\s?words[ \t]*:?[ \t]*(.+)$`)

// scanKeywordLine finds a "Keywords:"/"Key words:" line and returns
// the remainder of that line.
func scanKeywordLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if m := keywordLineRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// firstParagraph takes the first blank-line-delimited paragraph,
// capped at maxWords words.
func firstParagraph(text string, maxWords int) string {
	para := strings.TrimSpace(text)
	if head, _, found := strings.Cut(para, "\n\n"); found {
		para = strings.TrimSpace(head)
	}
	words := strings.Fields(para)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}
