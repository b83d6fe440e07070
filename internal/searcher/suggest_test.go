package searcher

import (
	"reflect"
	"testing"

	"github.com/aiteacher/chat-search-service/internal/store"
)

func TestSuggestions(t *testing.T) {
	s := newTestService(t,
		store.Message{ID: "m1", Content: "derivative derivation derived", Role: "user", Timestamp: "2026-01-10"},
		store.Message{ID: "m2", Content: "integration overdrive", Role: "user", Timestamp: "2026-01-10"},
	)

	tests := []struct {
		name    string
		partial string
		limit   int
		want    []string
	}{
		{
			name:    "prefix matches sorted",
			partial: "deriv",
			limit:   10,
			want:    []string{"derivation", "derivative", "derived", "overdrive"},
		},
		{
			name:    "substring match",
			partial: "drive",
			limit:   10,
			want:    []string{"overdrive"},
		},
		{
			name:    "case insensitive",
			partial: "DERIV",
			limit:   10,
			want:    []string{"derivation", "derivative", "derived", "overdrive"},
		},
		{
			name:    "limit truncates after sort",
			partial: "deriv",
			limit:   2,
			want:    []string{"derivation", "derivative"},
		},
		{
			name:    "too short",
			partial: "d",
			limit:   10,
			want:    []string{},
		},
		{
			name:    "empty",
			partial: "",
			limit:   10,
			want:    []string{},
		},
		{
			name:    "no match",
			partial: "zzz",
			limit:   10,
			want:    []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Suggestions(tt.partial, tt.limit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Suggestions(%q, %d) = %v, want %v", tt.partial, tt.limit, got, tt.want)
			}
		})
	}
}

func TestPopular(t *testing.T) {
	// "beta" occurs 3 times, "alpha" twice, "gamma" and "delta" once each.
	s := newTestService(t,
		store.Message{ID: "m1", Content: "alpha beta beta", Role: "user", Timestamp: "2026-01-10"},
		store.Message{ID: "m2", Content: "alpha beta gamma delta", Role: "user", Timestamp: "2026-01-10"},
	)

	got := s.Popular(10)
	want := []string{"beta", "alpha", "delta", "gamma"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Popular() = %v, want %v (count desc, ties lexicographic)", got, want)
	}

	if got := s.Popular(2); !reflect.DeepEqual(got, []string{"beta", "alpha"}) {
		t.Errorf("Popular(2) = %v, want top two", got)
	}
}

func TestPopularEmptyIndex(t *testing.T) {
	s := newTestService(t)
	if got := s.Popular(5); len(got) != 0 {
		t.Errorf("Popular() on empty index = %v, want none", got)
	}
}
