package script

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"narrated-video-pipeline/types"
)

// StructuralError means the generated script cannot be laid out as a video
// even after recovery attempts. It is fatal for the script stage.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string { return "script structure invalid: " + e.Reason }

const wordsPerMinute = 140

// EstimateDuration derives playback seconds from narration length at the
// fixed speaking rate, floored at 2 seconds.
func EstimateDuration(narration string) float64 {
	words := len(strings.Fields(narration))
	seconds := float64(words) / wordsPerMinute * 60
	seconds = math.Round(seconds*100) / 100
	if seconds < 2 {
		return 2
	}
	return seconds
}

// Validate reports whether sections is a non-empty ordered sequence of
// entries each with a non-empty heading and narration.
func Validate(sections []types.Section) bool {
	if len(sections) == 0 {
		return false
	}
	for _, s := range sections {
		if strings.TrimSpace(s.Heading) == "" || strings.TrimSpace(s.Narration) == "" {
			return false
		}
	}
	return true
}

var numberedHeading = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)

// EnsureConsistency filters malformed entries and, when the model collapsed
// everything into a single blob, splits that blob back into sections. The
// upstream model does not always honor the multi-section instruction; this
// recovery keeps the pipeline moving without accepting an un-assemblable
// script.
func EnsureConsistency(sections []types.Section, minSections int) ([]types.Section, error) {
	var valid []types.Section
	for _, s := range sections {
		if strings.TrimSpace(s.Heading) != "" && strings.TrimSpace(s.Narration) != "" {
			valid = append(valid, s)
		}
	}
	if len(valid) >= minSections {
		return valid, nil
	}
	if len(valid) != 1 {
		return nil, &StructuralError{
			Reason: fmt.Sprintf("found %d valid sections, need at least %d", len(valid), minSections),
		}
	}

	split := splitNarration(valid[0])
	if len(split) < minSections {
		return nil, &StructuralError{
			Reason: fmt.Sprintf("single section could not be split into %d parts", minSections),
		}
	}
	return split, nil
}

// splitNarration breaks one section's narration on blank-line paragraphs,
// falling back to numbered-heading boundaries.
func splitNarration(s types.Section) []types.Section {
	parts := splitParagraphs(s.Narration)
	if len(parts) < 2 {
		parts = splitNumbered(s.Narration)
	}

	out := make([]types.Section, 0, len(parts))
	for i, text := range parts {
		heading := s.Heading
		if i > 0 {
			heading = fmt.Sprintf("%s (Part %d)", s.Heading, i+1)
		}
		out = append(out, types.Section{
			Heading:   heading,
			Narration: text,
			Duration:  EstimateDuration(text),
		})
	}
	return out
}

func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var parts []string
	for _, block := range regexp.MustCompile(`\n\s*\n`).Split(normalized, -1) {
		block = strings.TrimSpace(block)
		if block != "" {
			parts = append(parts, block)
		}
	}
	return parts
}

func splitNumbered(text string) []string {
	locs := numberedHeading.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return nil
	}
	var parts []string
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		part := strings.TrimSpace(numberedHeading.ReplaceAllString(text[loc[0]:end], ""))
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// styleCycle is the fixed rotation applied to sections that arrive without
// an explicit style tag.
var styleCycle = []string{"general", "photorealistic", "concept_art", "cartoon", "anime"}

// AssignStyles fills missing style tags round-robin over the fixed cycle.
func AssignStyles(sections []types.Section) {
	next := 0
	for i := range sections {
		if sections[i].Style == "" {
			sections[i].Style = styleCycle[next%len(styleCycle)]
			next++
		}
	}
}
