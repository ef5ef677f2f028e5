package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ScorePayloadKey returns the cache key for a learner's pending score payload.
// The payload is written once at scoring time and consumed once by the
// results view.
func (r *CacheKeyStruct) ScorePayloadKey(subject, flavor string) string {
	return fmt.Sprintf("learner:%s:quiz:%s:score", subject, flavor)
}

// ChapterSelectionKey returns the cache key for a learner's selected chapter.
func (r *CacheKeyStruct) ChapterSelectionKey(subject string) string {
	return fmt.Sprintf("learner:%s:chapter_selection", subject)
}

var CacheKey = NewCacheKeyStruct()
