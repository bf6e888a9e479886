package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devmalya99/rag-agent/internal/ai"
	"github.com/devmalya99/rag-agent/internal/vecindex"
	"github.com/devmalya99/rag-agent/pkg/models"
)

// NoIndexMessage is returned when a question arrives before any transcript
// has been ingested. No model call is made in that case.
const NoIndexMessage = "Please provide a YouTube URL to train the agent first."

// ErrGenerationFailed wraps language-model failures during answering.
var ErrGenerationFailed = errors.New("error generating response")

const DefaultTopK = 5

const promptTemplate = `You are the professional AI persona of the speaker from the provided video transcript.
Your task is to answer viewer questions based STRICTLY on the content of the video context provided below.

Instructions:
1. **Persona:** Speak in the first person ("I", "we") as if you are the creator of the video. Be professional, engaging, and helpful.
2. **Knowledge Limit:** You can only answer based on the "Context" section below. Do not use outside knowledge.
3. **Failure Case:** If the answer to the question cannot be found in the context, do not make up an answer. Instead, strictly reply with this exact phrase:
   "Seems like you are asking questions that I can't find any answer for from my training data."

Context:
%s

User Question:
%s

Answer:`

// Responder answers questions about the most recently ingested transcript by
// retrieving the closest chunks and prompting the language model with them.
type Responder struct {
	Client ai.Client
	Index  *vecindex.Index
	TopK   int
}

func New(client ai.Client, index *vecindex.Index) *Responder {
	return &Responder{Client: client, Index: index, TopK: DefaultTopK}
}

// Respond answers one question grounded on the indexed transcript. Questions
// asked before any ingestion get the fixed instructional message.
func (r *Responder) Respond(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if r.Index.Len() == 0 {
		return NoIndexMessage, nil
	}

	results, err := r.Search(question, r.topK())
	if err != nil {
		if errors.Is(err, vecindex.ErrNotInitialized) {
			return NoIndexMessage, nil
		}
		return "", err
	}

	texts := make([]string, 0, len(results))
	for _, res := range results {
		texts = append(texts, res.Chunk.Text)
	}
	prompt := fmt.Sprintf(promptTemplate, strings.Join(texts, "\n\n"), question)

	answer, err := r.Client.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return answer, nil
}

// Search embeds the query and returns the k closest chunks, ordered by
// similarity. Used directly by the raw /search endpoint.
func (r *Responder) Search(query string, k int) ([]models.SearchResult, error) {
	vec, err := r.Client.Embed(strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.Index.Query(vec, k)
}

func (r *Responder) topK() int {
	if r.TopK > 0 {
		return r.TopK
	}
	return DefaultTopK
}
