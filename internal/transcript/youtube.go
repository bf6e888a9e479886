package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// CommandRunner abstracts subprocess execution so tests can stub yt-dlp.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// YouTubeClient fetches video transcripts by asking yt-dlp for the video's
// metadata (duration plus caption track URLs) and downloading the chosen
// caption track over HTTP in json3 format.
type YouTubeClient struct {
	Runner    CommandRunner
	HTTP      *http.Client
	YtdlpPath string
}

func NewYouTubeClient(ytdlpPath string) *YouTubeClient {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	return &YouTubeClient{
		Runner:    execRunner{},
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		YtdlpPath: ytdlpPath,
	}
}

type captionTrack struct {
	URL string `json:"url"`
	Ext string `json:"ext"`
}

type videoMetadata struct {
	ID                string                    `json:"id"`
	Title             string                    `json:"title"`
	Duration          float64                   `json:"duration"`
	Subtitles         map[string][]captionTrack `json:"subtitles"`
	AutomaticCaptions map[string][]captionTrack `json:"automatic_captions"`
}

// Fetch implements the Fetcher interface.
func (c *YouTubeClient) Fetch(ctx context.Context, videoURL string, opt Options) (*Result, error) {
	meta, err := c.dumpMetadata(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	trackURL, lang := pickTrack(meta, opt)
	if trackURL == "" {
		return nil, fmt.Errorf("%w for video %s", ErrNoTranscript, meta.ID)
	}
	if opt.Translate != "" && lang != opt.Translate {
		trackURL += "&tlang=" + opt.Translate
		lang = opt.Translate
	}

	segments, err := c.fetchTrack(ctx, trackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: caption track: %v", ErrFetchFailed, err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w for video %s: caption track is empty", ErrNoTranscript, meta.ID)
	}

	log.Debug().Str("video_id", meta.ID).Str("language", lang).
		Int("segments", len(segments)).Float64("duration", meta.Duration).
		Msg("fetched transcript")

	return &Result{
		VideoID:       meta.ID,
		Title:         meta.Title,
		Language:      lang,
		Segments:      segments,
		Duration:      meta.Duration,
		DurationKnown: meta.Duration > 0,
	}, nil
}

func (c *YouTubeClient) dumpMetadata(ctx context.Context, videoURL string) (*videoMetadata, error) {
	out, err := c.Runner.Run(ctx, c.YtdlpPath, "--dump-json", "--skip-download", videoURL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}
	var meta videoMetadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil, fmt.Errorf("yt-dlp metadata: %w", err)
	}
	return &meta, nil
}

// pickTrack chooses a caption track URL and its language. Preferred languages
// are tried first against authored subtitles, then automatic captions; with
// no preference, any track wins (sorted for determinism).
func pickTrack(meta *videoMetadata, opt Options) (string, string) {
	langs := opt.Languages
	for _, l := range langs {
		if u := trackURL(meta.Subtitles[l]); u != "" {
			return u, l
		}
	}
	for _, l := range langs {
		if u := trackURL(meta.AutomaticCaptions[l]); u != "" {
			return u, l
		}
	}
	if len(langs) > 0 {
		return "", ""
	}

	for _, tracks := range []map[string][]captionTrack{meta.Subtitles, meta.AutomaticCaptions} {
		keys := make([]string, 0, len(tracks))
		for l := range tracks {
			keys = append(keys, l)
		}
		sort.Strings(keys)
		for _, l := range keys {
			if u := trackURL(tracks[l]); u != "" {
				return u, l
			}
		}
	}
	return "", ""
}

func trackURL(tracks []captionTrack) string {
	for _, t := range tracks {
		if t.Ext == "json3" {
			return t.URL
		}
	}
	if len(tracks) > 0 {
		return tracks[0].URL
	}
	return ""
}

// json3 caption payload as served by YouTube's timedtext endpoint.
type json3Body struct {
	Events []struct {
		TStartMs    int64 `json:"tStartMs"`
		DDurationMs int64 `json:"dDurationMs"`
		Segs        []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func (c *YouTubeClient) fetchTrack(ctx context.Context, url string) ([]Segment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close caption response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption track status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed json3Body
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("caption track json3: %w", err)
	}

	var segments []Segment
	for _, ev := range parsed.Events {
		var b strings.Builder
		for _, s := range ev.Segs {
			b.WriteString(s.UTF8)
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		start := float64(ev.TStartMs) / 1000
		segments = append(segments, Segment{
			Text:  text,
			Start: start,
			End:   start + float64(ev.DDurationMs)/1000,
		})
	}
	return segments, nil
}
