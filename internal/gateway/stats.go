package gateway

import (
	"sync"

	"github.com/triage-ai/toolgate/internal/registry"
)

// OutcomeCounts aggregates terminal outcomes for one key.
type OutcomeCounts struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Denied    int64 `json:"denied"`
	DryRun    int64 `json:"dry_run"`
}

// UsageStats counts terminal outcomes per category and classification for
// the discovery stats endpoint. In-memory only; reset on restart.
type UsageStats struct {
	mu             sync.Mutex
	byCategory     map[string]*OutcomeCounts
	byClass        map[registry.Classification]*OutcomeCounts
	unknownLookups int64
}

// NewUsageStats creates an empty collector.
func NewUsageStats() *UsageStats {
	return &UsageStats{
		byCategory: make(map[string]*OutcomeCounts),
		byClass:    make(map[registry.Classification]*OutcomeCounts),
	}
}

func (s *UsageStats) record(category string, class registry.Classification, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range []*OutcomeCounts{s.bucketForCategory(category), s.bucketForClass(class)} {
		c.Total++
		switch outcome {
		case "succeeded":
			c.Succeeded++
		case "failed":
			c.Failed++
		case "denied":
			c.Denied++
		case "dry_run":
			c.DryRun++
		}
	}
}

func (s *UsageStats) recordUnknownLookup() {
	s.mu.Lock()
	s.unknownLookups++
	s.mu.Unlock()
}

func (s *UsageStats) bucketForCategory(category string) *OutcomeCounts {
	c, ok := s.byCategory[category]
	if !ok {
		c = &OutcomeCounts{}
		s.byCategory[category] = c
	}
	return c
}

func (s *UsageStats) bucketForClass(class registry.Classification) *OutcomeCounts {
	c, ok := s.byClass[class]
	if !ok {
		c = &OutcomeCounts{}
		s.byClass[class] = c
	}
	return c
}

// Snapshot returns a copy of the current counters.
func (s *UsageStats) Snapshot() (byCategory map[string]OutcomeCounts, byClass map[string]OutcomeCounts, unknownLookups int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCategory = make(map[string]OutcomeCounts, len(s.byCategory))
	for k, v := range s.byCategory {
		byCategory[k] = *v
	}
	byClass = make(map[string]OutcomeCounts, len(s.byClass))
	for k, v := range s.byClass {
		byClass[string(k)] = *v
	}
	return byCategory, byClass, s.unknownLookups
}
