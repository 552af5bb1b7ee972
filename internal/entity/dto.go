package entity

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	Response        string    `json:"response"`
	Filename        string    `json:"filename"`
	Keywords        []string  `json:"keywords"`
	SimilarArticles []Article `json:"similar_articles"`
}

// ResetResponse is returned by POST /api/reset.
type ResetResponse struct {
	Status string `json:"status"`
}

// TranscribeResponse is returned by POST /api/transcribe.
type TranscribeResponse struct {
	Text   string `json:"text"`
	Status string `json:"status"`
}

// SessionIDResponse is returned by GET /api/get_session_id.
type SessionIDResponse struct {
	SessionID string `json:"session_id"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
