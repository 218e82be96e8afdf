package script

import (
	"fmt"
	"strings"

	"narrated-video-pipeline/types"
)

// BuildPrompt constructs the generation prompt. The structure instruction is
// explicit because downstream parsing depends on the JSON array shape.
func BuildPrompt(req *types.Request) string {
	lines := []string{
		"You are an expert scriptwriter for short narrated videos.",
		"Write an engaging, educational script for a video on the following topic, split into clear sections.",
		"Return the result as a JSON array where each item has these fields: heading (string), narration (string), and duration (number, estimated seconds).",
		"Do NOT include markdown, visual cues, or image prompts in the narration.",
		"Example output:",
		"[",
		"  {",
		`    "heading": "Section Title",`,
		`    "narration": "A concise, engaging narration for this section.",`,
		`    "duration": 12`,
		"  }",
		"]",
		"---",
	}
	if req.Topic != "" {
		lines = append(lines, fmt.Sprintf("Topic: %s", req.Topic))
	}
	if len(req.Keywords) > 0 {
		lines = append(lines, fmt.Sprintf("Keywords: %s", strings.Join(req.Keywords, ", ")))
	}
	if req.Prompt != "" {
		lines = append(lines, fmt.Sprintf("Prompt: %s", req.Prompt))
	}
	return strings.Join(lines, "\n")
}
