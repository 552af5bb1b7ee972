package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/Zwang-23/medassist/internal/config"
	"github.com/Zwang-23/medassist/internal/entity"
	"github.com/Zwang-23/medassist/internal/pkg/logger"
	"github.com/Zwang-23/medassist/internal/pkg/response"
	"github.com/Zwang-23/medassist/internal/pkg/validator"
)

type Handler struct {
	sessions    Sessions
	ingester    Ingester
	chatter     Chatter
	transcriber Transcriber
	validator   *validator.Validator
	sessionCfg  config.SessionConfig
}

func NewHandler(
	sessions Sessions,
	ingester Ingester,
	chatter Chatter,
	transcriber Transcriber,
	validator *validator.Validator,
	sessionCfg config.SessionConfig,
) *Handler {
	return &Handler{
		sessions:    sessions,
		ingester:    ingester,
		chatter:     chatter,
		transcriber: transcriber,
		validator:   validator,
		sessionCfg:  sessionCfg,
	}
}

// Upload handles POST /api/upload - Index a document and discover related articles
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Upload")

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "no file provided", entity.ErrNoFile)
		return
	}
	defer file.Close()

	if err := h.validator.ValidateUpload(header); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	sess := h.sessions.GetOrCreate(h.readSessionID(r))
	if h.sessions.HasDocuments(sess) {
		sess = h.sessions.Replace(sess)
		ctxzap.Info(ctx, "re-upload, session replaced", zap.String("session_id", sess.ID))
	}
	h.writeSessionCookie(w, sess.ID)

	filename := validator.SanitizeFilename(header.Filename)
	savedFile, err := h.saveUpload(sess, file, filename)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to save file", err)
		return
	}

	ctxzap.Info(ctx, "file saved, starting ingestion",
		zap.String("session_id", sess.ID),
		zap.String("filename", filename),
	)

	result, err := h.ingester.Ingest(ctx, sess, savedFile)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to process file", err)
		return
	}

	notice := fmt.Sprintf("📁 File '%s' processed successfully!", header.Filename)
	h.sessions.MarkIndexed(sess, filename, notice)

	h.respondJSON(w, http.StatusOK, entity.UploadResponse{
		Response:        notice,
		Filename:        header.Filename,
		Keywords:        result.Keywords,
		SimilarArticles: result.SimilarArticles,
	})
}

// Stream handles GET /api/stream - Answer a question as a server-sent event stream
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Stream")

	sess := h.sessions.GetOrCreate(h.readSessionID(r))
	h.writeSessionCookie(w, sess.ID)

	message := r.URL.Query().Get("message")
	events, err := h.chatter.Answer(ctx, sess, message)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(ctx, w, http.StatusInternalServerError, "streaming unsupported", errors.New("response writer does not support flushing"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			ctxzap.Error(ctx, "failed to encode stream event", zap.Error(err))
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			ctxzap.Warn(ctx, "client disconnected mid-stream", zap.Error(err))
			return
		}
		flusher.Flush()
	}
}

// Reset handles POST /api/reset - Discard the current session
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Reset")

	var old *entity.Session
	if id := h.readSessionID(r); id != "" {
		old = h.sessions.GetOrCreate(id)
	}
	sess := h.sessions.Replace(old)
	h.writeSessionCookie(w, sess.ID)

	ctxzap.Info(ctx, "session reset", zap.String("session_id", sess.ID))
	h.respondJSON(w, http.StatusOK, entity.ResetResponse{Status: "reset"})
}

// Transcribe handles POST /api/transcribe - Convert an audio clip to text
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Transcribe")

	file, header, err := r.FormFile("audio")
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "no audio file provided", entity.ErrNoFile)
		return
	}
	defer file.Close()

	if err := h.validator.ValidateAudio(header); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".webm"
	}
	audioPath := filepath.Join(h.sessionCfg.AudioDir, uuid.New().String()+ext)
	if err := h.saveFile(file, audioPath); err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to save audio", err)
		return
	}
	defer os.Remove(audioPath)

	text, err := h.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "transcription failed", err)
		return
	}

	h.respondJSON(w, http.StatusOK, entity.TranscribeResponse{Text: text, Status: "success"})
}

// SessionID handles GET /api/get_session_id - Return the caller's session id
func (h *Handler) SessionID(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.GetOrCreate(h.readSessionID(r))
	h.writeSessionCookie(w, sess.ID)
	h.respondJSON(w, http.StatusOK, entity.SessionIDResponse{SessionID: sess.ID})
}

func (h *Handler) saveUpload(sess *entity.Session, file multipart.File, filename string) (string, error) {
	// A failed ingest leaves the previous file behind without marking
	// the session as indexed. The directory holds exactly one document,
	// so drop whatever is there before saving.
	if err := os.RemoveAll(sess.DataPath); err != nil {
		return "", fmt.Errorf("clear upload directory: %w", err)
	}
	if err := os.MkdirAll(sess.DataPath, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	path := filepath.Join(sess.DataPath, filename)
	if err := h.saveFile(file, path); err != nil {
		return "", err
	}
	return path, nil
}

func (h *Handler) saveFile(src io.Reader, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Helper methods
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	response.JSON(w, status, data)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Error(err))
	response.JSON(w, status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, entity.ErrNoFile) || errors.Is(err, entity.ErrNoMessage) {
		h.respondError(ctx, w, http.StatusBadRequest, "missing input", err)
	} else if errors.Is(err, entity.ErrInvalidExtension) || errors.Is(err, entity.ErrFileTooLarge) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid file", err)
	} else if errors.Is(err, entity.ErrSessionNotFound) {
		h.respondError(ctx, w, http.StatusNotFound, "session not found", err)
	} else {
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
