package entity

import "strings"

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message in a session's conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session holds the per-visitor state. The session manager owns the
// struct; everything else treats it as read-only.
type Session struct {
	ID            string
	DataPath      string // uploaded source files live here
	IndexPath     string // persisted vector index lives here
	History       []Turn
	UploadedFiles []string
	HasDocuments  bool
}

// Document is one loaded source file: full text plus its filename.
type Document struct {
	Text   string
	Source string
}

// Chunk is a bounded, offset-tagged slice of document text prepared
// for embedding. Chunks never span two source documents.
type Chunk struct {
	Text        string
	StartOffset int
	Source      string
}

// Article is a bibliographic search candidate.
type Article struct {
	Title   string  `json:"title"`
	Authors string  `json:"authors"`
	Link    string  `json:"link"`
	Score   float64 `json:"-"`
}

// Key returns the article's dedup identity: lower-cased, trimmed title.
func (a Article) Key() string {
	return strings.ToLower(strings.TrimSpace(a.Title))
}

// Stream event types emitted while answering a question.
const (
	EventStream = "stream"
	EventFinal  = "final"
	EventError  = "error"
)

// StreamEvent is one unit of a streamed answer: incremental content,
// the final concatenated response, or a terminal error.
type StreamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// IngestResult is what a successful upload produces.
type IngestResult struct {
	Title           string
	Keywords        []string
	SimilarArticles []Article
}
