package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Zwang-23/medassist/internal/config"
	"github.com/Zwang-23/medassist/internal/entity"
	"github.com/Zwang-23/medassist/internal/pkg/validator"
)

type stubSessions struct {
	current *entity.Session

	replaced    bool
	markedFile  string
	markedWith  string
	lastLookup  string
	hasDocsFlag bool
}

func (s *stubSessions) GetOrCreate(id string) *entity.Session {
	s.lastLookup = id
	return s.current
}

func (s *stubSessions) Replace(_ *entity.Session) *entity.Session {
	s.replaced = true
	s.current = &entity.Session{ID: "fresh", DataPath: s.current.DataPath, IndexPath: s.current.IndexPath}
	return s.current
}

func (s *stubSessions) MarkIndexed(_ *entity.Session, filename, notice string) {
	s.markedFile = filename
	s.markedWith = notice
}

func (s *stubSessions) HasDocuments(_ *entity.Session) bool { return s.hasDocsFlag }

type stubIngester struct {
	result    entity.IngestResult
	err       error
	savedFile string
}

func (s *stubIngester) Ingest(_ context.Context, _ *entity.Session, savedFile string) (entity.IngestResult, error) {
	s.savedFile = savedFile
	return s.result, s.err
}

type stubChatter struct {
	events []entity.StreamEvent
	err    error
}

func (s *stubChatter) Answer(_ context.Context, _ *entity.Session, message string) (<-chan entity.StreamEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan entity.StreamEvent, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type stubTranscriber struct {
	text string
	err  error
	path string
}

func (s *stubTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	s.path = audioPath
	return s.text, s.err
}

func newTestHandler(t *testing.T, sessions *stubSessions, ingester *stubIngester, chatter *stubChatter, transcriber *stubTranscriber) *Handler {
	t.Helper()
	if sessions.current == nil {
		dir := t.TempDir()
		sessions.current = &entity.Session{
			ID:        "test-session",
			DataPath:  filepath.Join(dir, "uploaded-files"),
			IndexPath: filepath.Join(dir, "index"),
		}
	}
	v := validator.NewFileValidator(config.UploadConfig{MaxFileSize: 1 << 20, MaxAudioFileSize: 1 << 20})
	return NewHandler(sessions, ingester, chatter, transcriber, v, config.SessionConfig{AudioDir: t.TempDir()})
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return body, w.FormDataContentType()
}

func TestUploadSuccess(t *testing.T) {
	sessions := &stubSessions{}
	ingester := &stubIngester{result: entity.IngestResult{
		Title:    "Paper Title",
		Keywords: []string{"asthma", "inhaler"},
		SimilarArticles: []entity.Article{
			{Title: "Related", Authors: "Doe, J.", Link: "https://example.org"},
		},
	}}
	h := newTestHandler(t, sessions, ingester, &stubChatter{}, &stubTranscriber{})

	body, contentType := multipartBody(t, "file", "my paper.txt", "document body")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp entity.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Filename != "my paper.txt" {
		t.Fatalf("unexpected filename: %q", resp.Filename)
	}
	if !strings.Contains(resp.Response, "processed successfully") {
		t.Fatalf("unexpected response message: %q", resp.Response)
	}
	if len(resp.Keywords) != 2 || len(resp.SimilarArticles) != 1 {
		t.Fatalf("result fields not carried through: %+v", resp)
	}
	if sessions.markedFile != "my_paper.txt" {
		t.Fatalf("expected sanitized filename marked, got %q", sessions.markedFile)
	}
	if !strings.HasSuffix(ingester.savedFile, "my_paper.txt") {
		t.Fatalf("unexpected saved file path: %q", ingester.savedFile)
	}
}

func TestUploadReplacesIndexedSession(t *testing.T) {
	sessions := &stubSessions{hasDocsFlag: true}
	h := newTestHandler(t, sessions, &stubIngester{}, &stubChatter{}, &stubTranscriber{})

	body, contentType := multipartBody(t, "file", "second.txt", "body")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !sessions.replaced {
		t.Fatal("re-upload over an indexed session must replace it")
	}
}

func TestUploadClearsStaleFileFromFailedIngest(t *testing.T) {
	sessions := &stubSessions{}
	ingester := &stubIngester{err: errors.New("index rebuild failed")}
	h := newTestHandler(t, sessions, ingester, &stubChatter{}, &stubTranscriber{})

	body, contentType := multipartBody(t, "file", "first.txt", "old body")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on failed ingest, got %d", rec.Code)
	}

	// The failed upload never marked the session as indexed, so the
	// retry must not end up indexing both files.
	ingester.err = nil
	body, contentType = multipartBody(t, "file", "second.txt", "new body")
	req = httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()

	h.Upload(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	entries, err := os.ReadDir(sessions.current.DataPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "second.txt" {
		t.Fatalf("expected only the retried upload on disk, got %v", entries)
	}
}

func TestUploadRejectsBadExtension(t *testing.T) {
	h := newTestHandler(t, &stubSessions{}, &stubIngester{}, &stubChatter{}, &stubTranscriber{})

	body, contentType := multipartBody(t, "file", "malware.exe", "nope")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadMissingFile(t *testing.T) {
	h := newTestHandler(t, &stubSessions{}, &stubIngester{}, &stubChatter{}, &stubTranscriber{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStreamEmitsSSE(t *testing.T) {
	chatter := &stubChatter{events: []entity.StreamEvent{
		{Type: entity.EventStream, Content: "Hel"},
		{Type: entity.EventStream, Content: "lo"},
		{Type: entity.EventFinal, Content: "Hello"},
	}}
	h := newTestHandler(t, &stubSessions{}, &stubIngester{}, chatter, &stubTranscriber{})

	req := httptest.NewRequest(http.MethodGet, "/api/stream?message=hi", nil)
	rec := httptest.NewRecorder()

	h.Stream(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", ct)
	}

	events := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	if len(events) != 3 {
		t.Fatalf("expected 3 SSE frames, got %d: %q", len(events), rec.Body.String())
	}
	if events[0] != `data: {"type":"stream","content":"Hel"}` {
		t.Fatalf("unexpected first frame: %q", events[0])
	}
	if events[2] != `data: {"type":"final","content":"Hello"}` {
		t.Fatalf("unexpected final frame: %q", events[2])
	}
}

func TestStreamMissingMessage(t *testing.T) {
	chatter := &stubChatter{err: entity.ErrNoMessage}
	h := newTestHandler(t, &stubSessions{}, &stubIngester{}, chatter, &stubTranscriber{})

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	rec := httptest.NewRecorder()

	h.Stream(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStreamErrorEventOnWire(t *testing.T) {
	chatter := &stubChatter{events: []entity.StreamEvent{
		{Type: entity.EventError, Content: "upstream failed"},
	}}
	h := newTestHandler(t, &stubSessions{}, &stubIngester{}, chatter, &stubTranscriber{})

	req := httptest.NewRequest(http.MethodGet, "/api/stream?message=hi", nil)
	rec := httptest.NewRecorder()

	h.Stream(rec, req)

	if got := strings.TrimSpace(rec.Body.String()); got != `data: {"type":"error","content":"upstream failed"}` {
		t.Fatalf("unexpected wire frame: %q", got)
	}
}

func TestResetMintsFreshSession(t *testing.T) {
	sessions := &stubSessions{}
	h := newTestHandler(t, sessions, &stubIngester{}, &stubChatter{}, &stubTranscriber{})

	req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "old-session"})
	rec := httptest.NewRecorder()

	h.Reset(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !sessions.replaced {
		t.Fatal("reset must replace the session")
	}

	var resp entity.ResetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "reset" {
		t.Fatalf("unexpected status: %q", resp.Status)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "fresh" {
		t.Fatalf("expected fresh session cookie, got %+v", cookies)
	}
}

func TestTranscribe(t *testing.T) {
	transcriber := &stubTranscriber{text: "hello world"}
	h := newTestHandler(t, &stubSessions{}, &stubIngester{}, &stubChatter{}, transcriber)

	body, contentType := multipartBody(t, "audio", "clip.webm", "fake-audio-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Transcribe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp entity.TranscribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Text != "hello world" || resp.Status != "success" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.HasSuffix(transcriber.path, ".webm") {
		t.Fatalf("expected temp audio file with source extension, got %q", transcriber.path)
	}
}

func TestSessionIDSetsCookie(t *testing.T) {
	sessions := &stubSessions{}
	h := newTestHandler(t, sessions, &stubIngester{}, &stubChatter{}, &stubTranscriber{})

	req := httptest.NewRequest(http.MethodGet, "/api/get_session_id", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "prior"})
	rec := httptest.NewRecorder()

	h.SessionID(rec, req)

	if sessions.lastLookup != "prior" {
		t.Fatalf("cookie value not used for lookup: %q", sessions.lastLookup)
	}

	var resp entity.SessionIDResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != "test-session" {
		t.Fatalf("unexpected session id: %q", resp.SessionID)
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 1 || cookies[0].Name != "session_id" {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
}
