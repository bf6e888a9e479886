package models

// TranscriptDocument is the full spoken text of one video, assembled once per
// successful fetch and immutable afterwards.
type TranscriptDocument struct {
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	Title    string  `json:"title,omitempty"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Chunk is a contiguous window of a transcript, the unit of retrieval.
// StartOffset is the character offset of the window in the source text.
type Chunk struct {
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	Source      string `json:"source,omitempty"`
	Title       string `json:"title,omitempty"`
}

type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// StatusEvent is one line of the newline-delimited status stream emitted
// during ingestion and chat.
type StatusEvent struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Response string         `json:"response,omitempty"`
}
