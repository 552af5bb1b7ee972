package entity

// CompletionStream is an ordered sequence of answer fragments from
// the streaming completion service, terminated by io.EOF.
type CompletionStream interface {
	Recv() (string, error)
	Close() error
}
