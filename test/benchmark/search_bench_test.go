package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/aiteacher/chat-search-service/internal/indexer/index"
	"github.com/aiteacher/chat-search-service/internal/searcher"
	"github.com/aiteacher/chat-search-service/internal/store"
)

var benchContents = []string{
	"Newton's laws of motion describe how forces change the motion of a body",
	"The derivative measures the instantaneous rate of change of a function",
	"Photosynthesis converts light energy into chemical energy in plant cells",
	"Momentum is conserved in every closed system regardless of collision type",
	"A quadratic equation in one variable has at most two real roots",
	"Entropy of an isolated system tends to increase over time",
	"Chemical bonds form when atoms share or transfer valence electrons",
	"Integration accumulates the area under the curve of a function",
}

func newBenchService(b *testing.B, numMessages int) *searcher.Service {
	b.Helper()
	st, err := store.Open(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	svc := searcher.New(st)
	for i := 0; i < numMessages; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		err := svc.IndexMessage(store.Message{
			ID:        fmt.Sprintf("m%d", i),
			Content:   benchContents[i%len(benchContents)],
			Role:      role,
			Timestamp: "2026-01-15T10:00:00Z",
		})
		if err != nil {
			b.Fatal(err)
		}
	}
	return svc
}

func BenchmarkIndexAdd(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, n := range sizes {
		b.Run(fmt.Sprintf("msgs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				idx := index.New()
				for j := 0; j < n; j++ {
					idx.Add(fmt.Sprintf("m%d", j), benchContents[j%len(benchContents)], j)
				}
			}
		})
	}
}

// Service benchmarks stay at moderate corpus sizes: every IndexMessage
// rewrites the JSON store file, so seeding cost grows quadratically.
func BenchmarkSearch(b *testing.B) {
	sizes := []int{100, 1000}
	queries := []struct {
		name  string
		query string
	}{
		{"single_word", "motion"},
		{"two_words", "energy function"},
		{"phrase", "rate of change"},
		{"zero_results", "nonexistent"},
	}

	for _, n := range sizes {
		svc := newBenchService(b, n)
		for _, q := range queries {
			b.Run(fmt.Sprintf("msgs_%d/%s", n, q.name), func(b *testing.B) {
				b.ReportAllocs()
				ctx := context.Background()
				for i := 0; i < b.N; i++ {
					resp, err := svc.Search(ctx, searcher.Request{Query: q.query, Limit: 50})
					if err != nil {
						b.Fatal(err)
					}
					_ = resp
				}
			})
		}
	}
}

func BenchmarkSuggestions(b *testing.B) {
	svc := newBenchService(b, 1000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = svc.Suggestions("ener", 10)
	}
}

func BenchmarkPopular(b *testing.B) {
	svc := newBenchService(b, 1000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = svc.Popular(10)
	}
}
