package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/devmalya99/rag-agent/internal/ai"
	"github.com/devmalya99/rag-agent/internal/transcript"
	"github.com/devmalya99/rag-agent/internal/vecindex"
	"github.com/devmalya99/rag-agent/pkg/models"
)

// MockFetcher implements transcript.Fetcher for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context, source string, opt transcript.Options) (*transcript.Result, error)
	Calls     []transcript.Options
}

func (m *MockFetcher) Fetch(ctx context.Context, source string, opt transcript.Options) (*transcript.Result, error) {
	m.Calls = append(m.Calls, opt)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, source, opt)
	}
	return nil, errors.New("mock not configured")
}

// MockAIClient implements the ai.Client interface for testing
type MockAIClient struct {
	EmbedFunc    func(text string) ([]float32, error)
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	DimFunc      func() int
}

func (m *MockAIClient) Embed(text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "mock answer", nil
}

func (m *MockAIClient) Dim() int {
	if m.DimFunc != nil {
		return m.DimFunc()
	}
	return 3
}

func resultWithText(text string, duration float64) *transcript.Result {
	return &transcript.Result{
		VideoID:       "vid",
		Title:         "title",
		Language:      "en",
		Segments:      []transcript.Segment{{Text: text, Start: 0, End: duration}},
		Duration:      duration,
		DurationKnown: duration > 0,
	}
}

func collectEvents() (*[]models.StatusEvent, Emitter) {
	events := &[]models.StatusEvent{}
	return events, func(ev models.StatusEvent) { *events = append(*events, ev) }
}

func statuses(events []models.StatusEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Status)
	}
	return out
}

func TestPipeline_Run(t *testing.T) {
	fetcher := &MockFetcher{
		FetchFunc: func(ctx context.Context, source string, opt transcript.Options) (*transcript.Result, error) {
			return resultWithText(strings.Repeat("spoken words ", 200), 120), nil
		},
	}
	index := vecindex.New()
	p := New(fetcher, ai.NewStubClient(16), index)

	events, emit := collectEvents()
	if err := p.Run(context.Background(), "https://youtu.be/vid", emit); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []string{
		StatusFetching, StatusValidatingDuration, StatusExtractingText,
		StatusChunking, StatusEmbedding, StatusIndexing, StatusComplete,
	}
	got := statuses(*events)
	if len(got) != len(want) {
		t.Fatalf("event statuses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}

	final := (*events)[len(*events)-1]
	if final.Data["total_chunks"] != index.Len() {
		t.Errorf("complete event chunks = %v, index has %d", final.Data["total_chunks"], index.Len())
	}
	if index.Len() == 0 {
		t.Fatalf("index is empty after successful run")
	}
	if _, ok := final.Data["transcript_length"]; !ok {
		t.Errorf("complete event missing transcript_length: %+v", final.Data)
	}
}

func TestPipeline_FetchFallback(t *testing.T) {
	callCount := 0
	fetcher := &MockFetcher{
		FetchFunc: func(ctx context.Context, source string, opt transcript.Options) (*transcript.Result, error) {
			callCount++
			if opt.Translate != "" {
				return nil, fmt.Errorf("%w: no translated track", transcript.ErrFetchFailed)
			}
			return resultWithText("fallback transcript text", 60), nil
		},
	}
	p := New(fetcher, ai.NewStubClient(16), vecindex.New())

	if err := p.Run(context.Background(), "url", nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if callCount != 2 {
		t.Fatalf("fetch called %d times, want 2", callCount)
	}
	// Primary attempt forces English translation; the fallback does not.
	if fetcher.Calls[0].Translate != "en" || fetcher.Calls[1].Translate != "" {
		t.Errorf("strategies = %+v", fetcher.Calls)
	}
}

func TestPipeline_FetchBothAttemptsFail(t *testing.T) {
	fetcher := &MockFetcher{
		FetchFunc: func(ctx context.Context, source string, opt transcript.Options) (*transcript.Result, error) {
			return nil, fmt.Errorf("%w: unreachable", transcript.ErrFetchFailed)
		},
	}
	p := New(fetcher, ai.NewStubClient(16), vecindex.New())

	events, emit := collectEvents()
	err := p.Run(context.Background(), "url", emit)
	if !errors.Is(err, transcript.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if len(fetcher.Calls) != 2 {
		t.Errorf("fetch called %d times, want 2", len(fetcher.Calls))
	}
	last := (*events)[len(*events)-1]
	if last.Status != StatusError || last.Message == "" {
		t.Errorf("terminal event = %+v", last)
	}
}

func TestPipeline_DurationValidation(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		known    bool
		wantErr  error
	}{
		{"at the limit", 300, true, nil},
		{"just over the limit", 301, true, ErrDurationExceeded},
		{"unknown duration", 0, false, ErrDurationUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &MockFetcher{
				FetchFunc: func(ctx context.Context, source string, opt transcript.Options) (*transcript.Result, error) {
					return &transcript.Result{
						Segments:      []transcript.Segment{{Text: "words"}},
						Duration:      tt.duration,
						DurationKnown: tt.known,
					}, nil
				},
			}
			p := New(fetcher, ai.NewStubClient(16), vecindex.New())

			err := p.Run(context.Background(), "url", nil)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPipeline_EmbeddingUnavailable(t *testing.T) {
	fetcher := &MockFetcher{
		FetchFunc: func(ctx context.Context, source string, opt transcript.Options) (*transcript.Result, error) {
			return resultWithText("text", 60), nil
		},
	}
	p := New(fetcher, nil, vecindex.New())

	events, emit := collectEvents()
	err := p.Run(context.Background(), "url", emit)
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	last := (*events)[len(*events)-1]
	if last.Status != StatusError {
		t.Errorf("terminal event = %+v", last)
	}
}

func TestPipeline_FailedRunLeavesIndexIntact(t *testing.T) {
	index := vecindex.New()
	if err := index.Replace([]vecindex.Entry{
		{Embedding: []float32{1, 0}, Chunk: models.Chunk{Text: "previous"}},
	}); err != nil {
		t.Fatal(err)
	}

	fetcher := &MockFetcher{
		FetchFunc: func(ctx context.Context, source string, opt transcript.Options) (*transcript.Result, error) {
			return resultWithText("replacement text", 60), nil
		},
	}
	client := &MockAIClient{
		EmbedFunc: func(text string) ([]float32, error) {
			return nil, errors.New("quota exhausted")
		},
	}
	p := New(fetcher, client, index)

	if err := p.Run(context.Background(), "url", nil); err == nil {
		t.Fatal("expected embedding failure")
	}

	if index.Len() != 1 {
		t.Fatalf("index size = %d, want 1", index.Len())
	}
	res, err := index.Query([]float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Chunk.Text != "previous" {
		t.Errorf("prior index entry lost: %+v", res[0])
	}
}

func TestPipeline_ChunkMetadataAttached(t *testing.T) {
	fetcher := &MockFetcher{
		FetchFunc: func(ctx context.Context, source string, opt transcript.Options) (*transcript.Result, error) {
			return resultWithText("short transcript", 60), nil
		},
	}
	index := vecindex.New()
	p := New(fetcher, ai.NewStubClient(16), index)

	if err := p.Run(context.Background(), "https://youtu.be/vid", nil); err != nil {
		t.Fatal(err)
	}
	res, err := index.Query(mustEmbed(t, "short transcript"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Chunk.Source != "https://youtu.be/vid" || res[0].Chunk.Title != "title" {
		t.Errorf("chunk metadata = %+v", res[0].Chunk)
	}
}

func mustEmbed(t *testing.T, text string) []float32 {
	t.Helper()
	vec, err := ai.NewStubClient(16).Embed(text)
	if err != nil {
		t.Fatal(err)
	}
	return vec
}
