package upstream

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/prepforge/quizgate/internal/quiz"
)

// flattenLevels walks the level-keyed structure into a single ordered
// question list. Level keys sort numerically when they parse as numbers and
// lexicographically otherwise, so "2" comes before "10" but named levels
// keep a stable order too. Within a level the upstream's own chapter and
// question order is preserved.
func flattenLevels(levels map[string][]facultyChapter) []quiz.Question {
	keys := make([]string, 0, len(levels))
	for key := range levels {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.Atoi(keys[i])
		b, berr := strconv.Atoi(keys[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		if aerr == nil {
			return true
		}
		if berr == nil {
			return false
		}
		return keys[i] < keys[j]
	})

	var questions []quiz.Question
	for _, key := range keys {
		for _, chapter := range levels[key] {
			for _, wq := range chapter.Subchapters {
				questions = append(questions, toQuestion(wq, key))
			}
		}
	}
	return questions
}

func flattenSubchapters(subchapters []chapterSubchapter) []quiz.Question {
	var questions []quiz.Question
	for _, sub := range subchapters {
		for _, wq := range sub.Questions {
			questions = append(questions, toQuestion(wq, wq.Level))
		}
	}
	return questions
}

func toQuestion(wq wireQuestion, level string) quiz.Question {
	if wq.Level != "" {
		level = wq.Level
	}
	return quiz.Question{
		ID:      wq.ID,
		Prompt:  wq.Question,
		Options: orderedOptions(wq.Options),
		Level:   level,
	}
}

// orderedOptions turns the {"1": ..., "4": ...} option map into a slice
// ordered by numeric key. Position i holds option i+1, matching the 1-based
// answer indexes on the wire.
func orderedOptions(options map[string]string) []string {
	keys := make([]int, 0, len(options))
	for key := range options {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		keys = append(keys, n)
	}
	sort.Ints(keys)

	ordered := make([]string, 0, len(keys))
	for _, n := range keys {
		ordered = append(ordered, options[strconv.Itoa(n)])
	}
	return ordered
}

// parseEndTime resolves the upstream's clock-only "HH:MM:SS" end time
// against today's date in the server's location. An end time earlier than
// now yields a deadline in the past, which the synced clock reports as an
// immediate expiry.
func parseEndTime(now time.Time, raw string) (time.Time, error) {
	clock, err := time.Parse("15:04:05", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad end_time %q: %w", raw, err)
	}
	return time.Date(now.Year(), now.Month(), now.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, now.Location()), nil
}
