package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zwang-23/medassist/internal/entity"
	"github.com/gen2brain/go-fitz"
	"github.com/unidoc/unioffice/document"
)

// Loader turns a directory of uploaded files into loaded documents.
type Loader interface {
	Load(dir string) ([]entity.Document, error)
}

// FileLoader reads PDF, plain-text, markdown and Word files.
// Unrecognized extensions are skipped silently.
type FileLoader struct{}

func NewFileLoader() FileLoader { return FileLoader{} }

func (FileLoader) Load(dir string) ([]entity.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	var docs []entity.Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())

		var text string
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pdf":
			text, err = readPDF(path)
		case ".txt", ".md":
			var raw []byte
			raw, err = os.ReadFile(path)
			text = string(raw)
		case ".docx":
			text, err = readWord(path)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", e.Name(), err)
		}

		docs = append(docs, entity.Document{Text: text, Source: e.Name()})
	}
	return docs, nil
}

func readPDF(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

func readWord(path string) (string, error) {
	doc, err := document.Open(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			b.WriteString(run.Text())
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
