package transcript

import (
	"context"
	"errors"
)

var (
	// ErrNoTranscript is returned when a video has no caption track at all.
	ErrNoTranscript = errors.New("no transcript found")

	// ErrFetchFailed wraps transport and tooling failures while fetching.
	ErrFetchFailed = errors.New("transcript fetch failed")
)

// Segment is one timed piece of spoken text.
type Segment struct {
	Text  string
	Start float64 // seconds from video start
	End   float64
}

// Result is the outcome of fetching a transcript for one video.
type Result struct {
	VideoID       string
	Title         string
	Language      string
	Segments      []Segment
	Duration      float64 // seconds
	DurationKnown bool
}

// Options selects which caption track to fetch. A zero Options takes any
// available track without forcing translation.
type Options struct {
	Languages []string // preferred caption languages, in order
	Translate string   // target language for forced translation ("" = none)
}

// Fetcher returns the transcript of a video identified by URL or path.
type Fetcher interface {
	Fetch(ctx context.Context, source string, opt Options) (*Result, error)
}

// Text concatenates the segments into the full transcript.
func (r *Result) Text() string {
	var n int
	for _, s := range r.Segments {
		n += len(s.Text) + 1
	}
	b := make([]byte, 0, n)
	for i, s := range r.Segments {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, s.Text...)
	}
	return string(b)
}
