package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/devmalya99/rag-agent/internal/ingest"
	"github.com/devmalya99/rag-agent/internal/vecindex"
	"github.com/devmalya99/rag-agent/pkg/models"
)

// Ingestor runs one transcript ingestion, emitting status events as it goes.
type Ingestor interface {
	Run(ctx context.Context, source string, emit ingest.Emitter) error
}

// Answerer answers questions and serves raw similarity search.
type Answerer interface {
	Respond(ctx context.Context, question string) (string, error)
	Search(query string, k int) ([]models.SearchResult, error)
}

// Server exposes the ingestion pipeline and responder over HTTP. Ingestion
// and chat stream newline-delimited JSON status events; search returns a
// plain JSON body.
type Server struct {
	Pipeline      Ingestor
	Responder     Answerer
	AllowedOrigin string
}

func New(pipeline Ingestor, responder Answerer, allowedOrigin string) *Server {
	return &Server{
		Pipeline:      pipeline,
		Responder:     responder,
		AllowedOrigin: allowedOrigin,
	}
}

// Handler returns the route mux wrapped with the CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	mux.HandleFunc("/transcript", s.handleTranscript)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/search", s.handleSearch)
	return s.cors(mux)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}

	stream := newEventStream(w)
	// Terminal error events are already emitted by the pipeline.
	if err := s.Pipeline.Run(r.Context(), req.URL, stream.Emit); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("url", req.URL).Msg("ingestion request failed")
		return
	}
	hlog.FromRequest(r).Info().Str("url", req.URL).Msg("ingestion request complete")
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "missing message", http.StatusBadRequest)
		return
	}

	stream := newEventStream(w)
	stream.Emit(models.StatusEvent{Status: "retrieving", Message: "Retrieving relevant context"})

	response, err := s.Responder.Respond(r.Context(), req.Message)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("chat request failed")
		stream.Emit(models.StatusEvent{Status: ingest.StatusError, Message: err.Error()})
		return
	}
	stream.Emit(models.StatusEvent{Status: ingest.StatusComplete, Response: response})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		http.Error(w, "missing query", http.StatusBadRequest)
		return
	}
	if req.K <= 0 {
		req.K = 4
	}

	results, err := s.Responder.Search(req.Query, req.K)
	if err != nil {
		if errors.Is(err, vecindex.ErrNotInitialized) {
			http.Error(w, "Vector store not initialized. Please train the agent with a YouTube URL first.", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type item struct {
		Content  string         `json:"content"`
		Metadata map[string]any `json:"metadata"`
	}
	out := struct {
		Results []item `json:"results"`
	}{Results: make([]item, 0, len(results))}
	for _, res := range results {
		out.Results = append(out.Results, item{
			Content: res.Chunk.Text,
			Metadata: map[string]any{
				"start_offset": res.Chunk.StartOffset,
				"source":       res.Chunk.Source,
				"title":        res.Chunk.Title,
				"score":        res.Score,
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("failed to encode search response")
	}
}

// cors applies permissive cross-origin headers so a browser frontend can
// talk to the API directly.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// eventStream writes status events as newline-delimited JSON, flushing after
// each event so the client observes progress incrementally.
type eventStream struct {
	enc     *json.Encoder
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) *eventStream {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)
	return &eventStream{enc: json.NewEncoder(w), flusher: flusher}
}

func (s *eventStream) Emit(ev models.StatusEvent) {
	if err := s.enc.Encode(ev); err != nil {
		log.Warn().Err(err).Msg("failed to write status event")
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
