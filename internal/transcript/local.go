package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
)

// FileSystemWalker defines the interface for walking directories
type FileSystemWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader defines the interface for reading files
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// DefaultFileSystemWalker implements FileSystemWalker using godirwalk
type DefaultFileSystemWalker struct{}

func (d *DefaultFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// LocalLoader reads transcripts from .srt and .txt files on disk, mainly for
// offline ingestion and testing. The source may be a single file or a
// directory, which is walked recursively. SRT files carry timing, so their
// duration is known; plain text files do not.
type LocalLoader struct {
	Walker     FileSystemWalker
	FileReader FileReader
}

func NewLocalLoader() *LocalLoader {
	return &LocalLoader{
		Walker:     &DefaultFileSystemWalker{},
		FileReader: &DefaultFileReader{},
	}
}

// Fetch implements the Fetcher interface. Options are ignored: local files
// have no alternate language tracks.
func (l *LocalLoader) Fetch(ctx context.Context, source string, opt Options) (*Result, error) {
	fi, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	paths := []string{source}
	if fi.IsDir() {
		paths, err = l.collect(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no .srt or .txt files under %s", ErrNoTranscript, source)
	}

	res := &Result{
		VideoID:       source,
		Title:         filepath.Base(source),
		DurationKnown: true,
	}
	for _, p := range paths {
		data, err := l.FileReader.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".srt":
			segs := ParseSRT(string(data))
			offset := res.Duration
			for _, s := range segs {
				res.Segments = append(res.Segments, Segment{
					Text:  s.Text,
					Start: s.Start + offset,
					End:   s.End + offset,
				})
			}
			if len(segs) > 0 {
				res.Duration = offset + segs[len(segs)-1].End
			}
		default:
			text := strings.TrimSpace(string(data))
			if text != "" {
				res.Segments = append(res.Segments, Segment{Text: text})
			}
			res.DurationKnown = false
		}
	}

	if len(res.Segments) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTranscript, source)
	}
	if !res.DurationKnown {
		res.Duration = 0
	}
	return res, nil
}

// collect walks root and returns the transcript files in sorted order.
func (l *LocalLoader) collect(root string) ([]string, error) {
	var paths []string
	err := l.Walker.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de != nil && de.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".srt", ".txt":
				paths = append(paths, path)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
