package chunker

import (
	"fmt"

	"github.com/devmalya99/rag-agent/pkg/models"
)

// Chunk splits text into fixed-size windows that overlap by `overlap`
// characters. Each window's starting character offset in the original text is
// recorded on the chunk. The final window may be shorter than `size`; no
// padding is added. Overlapping keeps sentences that straddle a cut point
// retrievable from both sides of it.
func Chunk(text string, size, overlap int) ([]models.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, size), got size=%d overlap=%d", size, overlap)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := size - overlap
	var chunks []models.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, models.Chunk{
			Text:        string(runes[start:end]),
			StartOffset: start,
		})
	}
	return chunks, nil
}
