package script

import (
	"fmt"
	"os"
	"strings"

	"narrated-video-pipeline/types"
)

// WriteSRT writes one subtitle cue per section with cumulative timestamps
// derived from the section durations.
func WriteSRT(path string, sections []types.Section) error {
	var sb strings.Builder
	var elapsed float64
	for i, s := range sections {
		start := elapsed
		elapsed += s.Duration
		sb.WriteString(fmt.Sprintf("%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(start), srtTimestamp(elapsed), strings.TrimSpace(s.Narration)))
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("write subtitles %s: %w", path, err)
	}
	return nil
}

func srtTimestamp(seconds float64) string {
	millis := int(seconds*1000 + 0.5)
	h := millis / 3600000
	m := millis % 3600000 / 60000
	s := millis % 60000 / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
