package script

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"narrated-video-pipeline/types"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\[.*?\\])\\s*```")

// ParseResponse turns the model's free-form reply into sections. It first
// looks for a fenced JSON array and falls back to a line-oriented heuristic,
// because the model does not reliably honor the JSON instruction. It never
// fails outright; structural validation happens afterwards.
func ParseResponse(text string, log zerolog.Logger) []types.Section {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		var sections []types.Section
		if err := json.Unmarshal([]byte(m[1]), &sections); err == nil {
			log.Debug().Int("sections", len(sections)).Msg("parsed fenced JSON block")
			return sections
		} else {
			log.Warn().Err(err).Msg("fenced JSON block did not parse, using heuristic")
		}
	}

	// Bare array with no fence still counts as honoring the instruction.
	if trimmed := strings.TrimSpace(stripFences(text)); strings.HasPrefix(trimmed, "[") {
		var sections []types.Section
		if err := json.Unmarshal([]byte(trimmed), &sections); err == nil {
			return sections
		}
	}

	log.Debug().Msg("using heuristic line parser")
	return parseHeuristic(text)
}

// parseHeuristic treats a line ending in ':' as a section heading and
// accumulates following non-blank lines as that section's narration.
func parseHeuristic(text string) []types.Section {
	var sections []types.Section
	var current *types.Section
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasSuffix(line, ":") {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &types.Section{Heading: strings.TrimSuffix(line, ":")}
			continue
		}
		if current == nil {
			current = &types.Section{}
		}
		if current.Narration != "" {
			current.Narration += " "
		}
		current.Narration += strings.TrimSpace(line)
	}
	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

// stripFences removes a surrounding markdown code fence, same trick the
// fenced-JSON regexp cannot reach when the array is the entire reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
