package llm

import (
	"sync"
	"time"
)

// UsageTracker counts completion tokens per model and per day.
type UsageTracker struct {
	mu           sync.RWMutex
	totalTokens  int64
	requestCount int64
	dailyTokens  map[string]int64
	modelUsage   map[string]int64
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		dailyTokens: make(map[string]int64),
		modelUsage:  make(map[string]int64),
	}
}

func (t *UsageTracker) Track(model string, inputTokens, outputTokens int) {
	tokens := int64(inputTokens + outputTokens)

	t.mu.Lock()
	t.totalTokens += tokens
	t.requestCount++

	today := time.Now().Format("2006-01-02")
	t.dailyTokens[today] += tokens
	t.modelUsage[model] += tokens
	t.mu.Unlock()
}

func (t *UsageTracker) Stats() UsageStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	models := make(map[string]int64, len(t.modelUsage))
	for k, v := range t.modelUsage {
		models[k] = v
	}

	stats := UsageStats{
		TotalTokens:  t.totalTokens,
		RequestCount: t.requestCount,
		TodayTokens:  t.dailyTokens[time.Now().Format("2006-01-02")],
		ModelTokens:  models,
	}
	if t.requestCount > 0 {
		stats.AvgTokensPerRequest = float64(t.totalTokens) / float64(t.requestCount)
	}
	return stats
}

type UsageStats struct {
	TotalTokens         int64            `json:"total_tokens"`
	RequestCount        int64            `json:"request_count"`
	TodayTokens         int64            `json:"today_tokens"`
	AvgTokensPerRequest float64          `json:"avg_tokens_per_request"`
	ModelTokens         map[string]int64 `json:"model_tokens"`
}
