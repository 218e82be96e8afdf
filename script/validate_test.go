package script

import (
	"strings"
	"testing"

	"narrated-video-pipeline/types"
)

func TestEstimateDuration(t *testing.T) {
	// 140 words at 140 wpm is exactly one minute.
	minute := strings.Repeat("word ", 140)
	if got := EstimateDuration(minute); got != 60 {
		t.Errorf("140 words: got %v, want 60", got)
	}

	// Very short narration is floored so the segment stays watchable.
	if got := EstimateDuration("hello there friend"); got != 2 {
		t.Errorf("3 words: got %v, want floor of 2", got)
	}
	if got := EstimateDuration(""); got != 2 {
		t.Errorf("empty narration: got %v, want floor of 2", got)
	}

	// 21 words = 9 seconds exactly; checks the two-decimal rounding path.
	if got := EstimateDuration(strings.Repeat("word ", 21)); got != 9 {
		t.Errorf("21 words: got %v, want 9", got)
	}
}

func TestValidate(t *testing.T) {
	good := []types.Section{
		{Heading: "Intro", Narration: "Welcome to the show."},
		{Heading: "Outro", Narration: "Thanks for watching."},
	}
	if !Validate(good) {
		t.Error("well-formed sections rejected")
	}
	if Validate(nil) {
		t.Error("empty slice accepted")
	}
	if Validate([]types.Section{{Heading: "  ", Narration: "text"}}) {
		t.Error("blank heading accepted")
	}
	if Validate([]types.Section{{Heading: "Intro", Narration: "\t\n"}}) {
		t.Error("blank narration accepted")
	}
}

func TestEnsureConsistencyFiltersMalformed(t *testing.T) {
	sections := []types.Section{
		{Heading: "One", Narration: "First part."},
		{Heading: "", Narration: "orphan narration"},
		{Heading: "Two", Narration: "Second part."},
	}
	got, err := EnsureConsistency(sections, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Heading != "One" || got[1].Heading != "Two" {
		t.Errorf("got %+v, want the two valid sections in order", got)
	}
}

func TestEnsureConsistencySplitsSingleBlob(t *testing.T) {
	blob := []types.Section{{
		Heading:   "The Water Cycle",
		Narration: "Water evaporates from lakes and oceans when the sun heats it.\n\nHigh in the sky the vapor cools and condenses into clouds.",
	}}
	got, err := EnsureConsistency(blob, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sections, want 2", len(got))
	}
	if got[0].Heading != "The Water Cycle" {
		t.Errorf("first heading = %q, want original heading", got[0].Heading)
	}
	if got[1].Heading != "The Water Cycle (Part 2)" {
		t.Errorf("second heading = %q, want derived part heading", got[1].Heading)
	}
	for i, s := range got {
		if s.Duration < 2 {
			t.Errorf("section %d duration = %v, want >= 2", i+1, s.Duration)
		}
	}
}

func TestEnsureConsistencySplitsNumberedList(t *testing.T) {
	blob := []types.Section{{
		Heading:   "Steps",
		Narration: "1. Mix the flour and water together in a bowl. 2) Knead the dough until it is smooth. 3. Let it rest for an hour.",
	}}
	// No blank lines here, so the numbered-boundary fallback must kick in.
	got, err := EnsureConsistency(blob, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d sections, want 3", len(got))
	}
}

func TestEnsureConsistencyRejectsUnsplittable(t *testing.T) {
	blob := []types.Section{{
		Heading:   "Only",
		Narration: "One continuous narration with no paragraph breaks at all.",
	}}
	_, err := EnsureConsistency(blob, 2)
	if err == nil {
		t.Fatal("expected structural error, got nil")
	}
	if _, ok := err.(*StructuralError); !ok {
		t.Errorf("got %T, want *StructuralError", err)
	}
}

func TestEnsureConsistencyRejectsAllMalformed(t *testing.T) {
	_, err := EnsureConsistency([]types.Section{
		{Heading: "", Narration: ""},
		{Heading: "H", Narration: " "},
	}, 2)
	if _, ok := err.(*StructuralError); !ok {
		t.Fatalf("got %v (%T), want *StructuralError", err, err)
	}
}

func TestAssignStyles(t *testing.T) {
	sections := []types.Section{
		{Heading: "A", Narration: "a"},
		{Heading: "B", Narration: "b", Style: "cartoon"},
		{Heading: "C", Narration: "c"},
	}
	AssignStyles(sections)
	if sections[0].Style != "general" {
		t.Errorf("first style = %q, want general", sections[0].Style)
	}
	if sections[1].Style != "cartoon" {
		t.Errorf("explicit style overwritten: %q", sections[1].Style)
	}
	if sections[2].Style != "photorealistic" {
		t.Errorf("rotation skipped explicit sections: got %q", sections[2].Style)
	}
}
