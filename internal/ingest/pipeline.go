package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/devmalya99/rag-agent/internal/ai"
	"github.com/devmalya99/rag-agent/internal/chunker"
	"github.com/devmalya99/rag-agent/internal/transcript"
	"github.com/devmalya99/rag-agent/internal/vecindex"
	"github.com/devmalya99/rag-agent/pkg/models"
)

// Pipeline stage names, emitted as the `status` field of stream events.
const (
	StatusFetching           = "fetching"
	StatusValidatingDuration = "validating_duration"
	StatusExtractingText     = "extracting_text"
	StatusChunking           = "chunking"
	StatusEmbedding          = "embedding"
	StatusIndexing           = "indexing"
	StatusComplete           = "complete"
	StatusError              = "error"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultMaxDuration  = 300 // seconds
)

var (
	// ErrDurationExceeded is returned for videos longer than the ceiling.
	ErrDurationExceeded = errors.New("video duration exceeds the limit")

	// ErrDurationUnknown is returned when duration cannot be determined.
	// Unknown durations are rejected, not passed through, to bound
	// downstream embedding cost.
	ErrDurationUnknown = errors.New("video duration could not be determined")

	// ErrEmbeddingUnavailable is returned when no embedding capability is
	// configured.
	ErrEmbeddingUnavailable = errors.New("no embedding capability configured")
)

// Emitter receives one status event per pipeline transition. Events are
// produced synchronously on the ingestion goroutine; the transport decides
// how to forward them.
type Emitter func(models.StatusEvent)

// Pipeline runs transcript ingestion end to end: fetch, validate, chunk,
// embed, index. A run either completes and atomically replaces the shared
// index, or fails leaving the previous index intact. Runs are serialized;
// a second ingestion blocks until the first finishes.
type Pipeline struct {
	Fetcher      transcript.Fetcher
	Client       ai.Client
	Index        *vecindex.Index
	ChunkSize    int
	ChunkOverlap int
	MaxDuration  float64 // seconds; <= 0 disables the ceiling

	mu sync.Mutex
}

// New creates a Pipeline with the default chunking configuration and
// duration ceiling.
func New(fetcher transcript.Fetcher, client ai.Client, index *vecindex.Index) *Pipeline {
	return &Pipeline{
		Fetcher:      fetcher,
		Client:       client,
		Index:        index,
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		MaxDuration:  DefaultMaxDuration,
	}
}

// Run ingests one video. Each stage emits its status event before doing the
// stage's work; any failure emits a terminal error event and returns the
// error. The pipeline never resumes after an error.
func (p *Pipeline) Run(ctx context.Context, source string, emit Emitter) error {
	if emit == nil {
		emit = func(models.StatusEvent) {}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	jobID := uuid.NewString()
	logger := log.With().Str("job_id", jobID).Str("source", source).Logger()

	fail := func(err error) error {
		logger.Error().Err(err).Msg("ingestion failed")
		emit(models.StatusEvent{Status: StatusError, Message: err.Error()})
		return err
	}

	emit(models.StatusEvent{
		Status:  StatusFetching,
		Message: "Fetching transcript",
		Data:    map[string]any{"job_id": jobID},
	})
	res, err := p.fetchWithFallback(ctx, source, &logger)
	if err != nil {
		return fail(err)
	}

	emit(models.StatusEvent{Status: StatusValidatingDuration, Message: "Validating video duration"})
	if p.MaxDuration > 0 {
		if !res.DurationKnown {
			return fail(ErrDurationUnknown)
		}
		if res.Duration > p.MaxDuration {
			return fail(fmt.Errorf("%w: video is %.0fs, limit is %.0fs", ErrDurationExceeded, res.Duration, p.MaxDuration))
		}
	}

	emit(models.StatusEvent{Status: StatusExtractingText, Message: "Extracting transcript text"})
	doc := models.TranscriptDocument{
		Text:     res.Text(),
		Source:   source,
		Title:    res.Title,
		Language: res.Language,
		Duration: res.Duration,
	}
	if strings.TrimSpace(doc.Text) == "" {
		return fail(fmt.Errorf("%w in %s", transcript.ErrNoTranscript, source))
	}

	emit(models.StatusEvent{
		Status:  StatusChunking,
		Message: "Splitting transcript into chunks",
		Data:    map[string]any{"chunk_size": p.ChunkSize, "chunk_overlap": p.ChunkOverlap},
	})
	chunks, err := chunker.Chunk(doc.Text, p.ChunkSize, p.ChunkOverlap)
	if err != nil {
		return fail(err)
	}
	for i := range chunks {
		chunks[i].Source = doc.Source
		chunks[i].Title = doc.Title
	}

	emit(models.StatusEvent{
		Status:  StatusEmbedding,
		Message: "Embedding chunks",
		Data:    map[string]any{"total_chunks": len(chunks)},
	})
	if p.Client == nil || p.Client.Dim() == 0 {
		return fail(ErrEmbeddingUnavailable)
	}
	entries := make([]vecindex.Entry, 0, len(chunks))
	for _, ch := range chunks {
		vec, err := p.Client.Embed(ch.Text)
		if err != nil {
			return fail(fmt.Errorf("embedding chunk at offset %d: %w", ch.StartOffset, err))
		}
		entries = append(entries, vecindex.Entry{Embedding: vec, Chunk: ch})
	}

	emit(models.StatusEvent{Status: StatusIndexing, Message: "Installing vector index"})
	if err := p.Index.Replace(entries); err != nil {
		return fail(err)
	}

	logger.Info().Int("transcript_length", len(doc.Text)).Int("chunks", len(chunks)).Msg("ingestion complete")
	emit(models.StatusEvent{
		Status:  StatusComplete,
		Message: "Transcript indexed",
		Data: map[string]any{
			"job_id":            jobID,
			"transcript_length": len(doc.Text),
			"total_chunks":      len(chunks),
		},
	})
	return nil
}

// fetchWithFallback tries the fetch strategies in order, stopping at the
// first success. The primary strategy asks for English with forced
// translation; the fallback takes any available transcript.
func (p *Pipeline) fetchWithFallback(ctx context.Context, source string, logger *zerolog.Logger) (*transcript.Result, error) {
	strategies := []transcript.Options{
		{Languages: []string{"en", "en-US"}, Translate: "en"},
		{},
	}

	var lastErr error
	for i, opt := range strategies {
		res, err := p.Fetcher.Fetch(ctx, source, opt)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logger.Warn().Err(err).Int("strategy", i).Msg("transcript fetch attempt failed")
	}
	return nil, lastErr
}
