package transcript

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSRT parses SubRip transcript text into timed segments. Cue layout:
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
//
// Multi-line cue text is joined with spaces. Malformed timestamp lines are
// skipped rather than failing the whole file.
func ParseSRT(text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var segments []Segment
	var cur *Segment

	flush := func() {
		if cur != nil && strings.TrimSpace(cur.Text) != "" {
			cur.Text = strings.TrimSpace(cur.Text)
			segments = append(segments, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if line == "" {
			flush()
			continue
		}
		if isDigitOnly(line) && cur == nil {
			continue
		}
		if strings.Contains(line, "-->") {
			flush()
			parts := strings.Split(line, "-->")
			if len(parts) != 2 {
				continue
			}
			start, err1 := parseSRTTime(strings.TrimSpace(parts[0]))
			end, err2 := parseSRTTime(strings.TrimSpace(parts[1]))
			if err1 != nil || err2 != nil {
				continue
			}
			cur = &Segment{Start: start, End: end}
			continue
		}
		if cur != nil {
			if cur.Text != "" {
				cur.Text += " "
			}
			cur.Text += line
		}
	}
	flush()

	return segments
}

// parseSRTTime converts "HH:MM:SS,mmm" to seconds.
func parseSRTTime(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid SRT timestamp %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return float64(h)*3600 + float64(m)*60 + sec, nil
}

// checks if a string contains only digits
func isDigitOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
