package validator

import (
	"errors"
	"mime/multipart"
	"testing"

	"github.com/Zwang-23/medassist/internal/config"
	"github.com/Zwang-23/medassist/internal/entity"
)

func testValidator() *Validator {
	return NewFileValidator(config.UploadConfig{
		MaxFileSize:      1024,
		MaxAudioFileSize: 512,
	})
}

func header(name string, size int64) *multipart.FileHeader {
	return &multipart.FileHeader{Filename: name, Size: size}
}

func TestValidateUploadAcceptsKnownExtensions(t *testing.T) {
	v := testValidator()
	for _, name := range []string{"a.pdf", "b.txt", "c.md", "d.docx", "E.PDF"} {
		if err := v.ValidateUpload(header(name, 100)); err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
	}
}

func TestValidateUploadRejectsUnknownExtension(t *testing.T) {
	err := testValidator().ValidateUpload(header("script.exe", 100))
	if !errors.Is(err, entity.ErrInvalidExtension) {
		t.Fatalf("expected ErrInvalidExtension, got %v", err)
	}
}

func TestValidateUploadRejectsOversizedFile(t *testing.T) {
	err := testValidator().ValidateUpload(header("big.pdf", 4096))
	if !errors.Is(err, entity.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestValidateUploadRejectsMissingFile(t *testing.T) {
	if err := testValidator().ValidateUpload(nil); !errors.Is(err, entity.ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestValidateAudioSizeCap(t *testing.T) {
	v := testValidator()
	if err := v.ValidateAudio(header("clip.webm", 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.ValidateAudio(header("clip.webm", 1000)); !errors.Is(err, entity.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"my paper (final).pdf": "my_paper_final.pdf",
		"../../etc/passwd":     "passwd",
		"plain.txt":            "plain.txt",
		"[draft] v2.docx":      "draft_v2.docx",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}
