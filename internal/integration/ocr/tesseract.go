package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/Zwang-23/medassist/internal/config"
	"github.com/otiai10/gosseract/v2"
)

// Client recognizes text in page images through a local Tesseract
// installation.
type Client struct {
	language string
}

func NewClient(cfg config.OCRConfig) *Client {
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	return &Client{language: lang}
}

// Recognize runs OCR on a preprocessed page image. A fresh Tesseract
// client per call keeps this safe under concurrent requests.
func (c *Client) Recognize(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(c.language); err != nil {
		return "", fmt.Errorf("set ocr language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load page image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
