package store

import (
	"os"
	"sync"

	"github.com/rs/zerolog"

	"narrated-video-pipeline/types"
)

// Stage identifies a per-unit ledger column.
type Stage string

const (
	StageVoice  Stage = "voice"
	StageImages Stage = "images"
)

// Ledger is the resumption source of truth. It is the only object mutated
// from multiple workers; every mutation happens under one lock and is
// persisted before the lock is released, so a crash loses at most the
// in-flight unit.
type Ledger struct {
	mu       sync.Mutex
	path     string
	log      zerolog.Logger
	progress types.Progress
}

// OpenLedger loads progress.json from dir, or starts an empty ledger on the
// first run. A corrupt ledger is logged and replaced rather than aborting;
// completed artifacts are still on disk and stages re-verify their units.
func OpenLedger(dir string, log zerolog.Logger) *Ledger {
	l := &Ledger{path: dir + string(os.PathSeparator) + "progress.json", log: log}
	if err := LoadJSON(l.path, &l.progress); err != nil {
		if _, missing := err.(*NotFoundError); !missing {
			log.Warn().Err(err).Msg("could not load progress ledger, starting fresh")
		}
		l.progress = types.Progress{}
	}
	return l
}

func (l *Ledger) save() {
	if err := SaveJSON(l.path, &l.progress); err != nil {
		l.log.Warn().Err(err).Msg("could not save progress ledger")
	}
}

// ScriptDone reports whether the script stage is terminal.
func (l *Ledger) ScriptDone() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.progress.Script
}

// VideoDone reports whether the assembly stage is terminal.
func (l *Ledger) VideoDone() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.progress.Video
}

// MarkScript records script-stage completion.
func (l *Ledger) MarkScript() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress.Script = true
	l.save()
}

// MarkVideo records assembly completion. Called only after the final video
// file exists.
func (l *Ledger) MarkVideo() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress.Video = true
	l.save()
}

// MarkUnit records one completed section index for a parallel stage.
func (l *Ledger) MarkUnit(stage Stage, idx int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch stage {
	case StageVoice:
		l.progress.Voice = appendUnique(l.progress.Voice, idx)
	case StageImages:
		l.progress.Images = appendUnique(l.progress.Images, idx)
	}
	l.save()
}

// Completed returns the set of done section indices for a parallel stage.
func (l *Ledger) Completed(stage Stage) map[int]bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	var src []int
	switch stage {
	case StageVoice:
		src = l.progress.Voice
	case StageImages:
		src = l.progress.Images
	}
	done := make(map[int]bool, len(src))
	for _, idx := range src {
		done[idx] = true
	}
	return done
}

// Snapshot returns a copy of the current progress, for status reporting.
func (l *Ledger) Snapshot() types.Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.progress
	p.Voice = append([]int(nil), l.progress.Voice...)
	p.Images = append([]int(nil), l.progress.Images...)
	return p
}

func appendUnique(list []int, idx int) []int {
	for _, v := range list {
		if v == idx {
			return list
		}
	}
	return append(list, idx)
}
