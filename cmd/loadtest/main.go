// Command loadtest drives the chat search service with mixed traffic:
// it seeds a corpus of messages through the index endpoint, then hammers
// search and suggestion endpoints and reports latency percentiles.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	SeedCount   int
	Queries     []string
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

var seedContents = []string{
	"Newton's laws of motion describe the relationship between force and acceleration",
	"The derivative of a function measures its instantaneous rate of change",
	"Photosynthesis converts light energy into chemical energy in plants",
	"A quadratic equation has at most two real roots",
	"The mitochondria is the powerhouse of the cell",
	"Momentum is conserved in elastic and inelastic collisions",
	"Integration is the inverse operation of differentiation",
	"Chemical bonds form when atoms share or transfer electrons",
	"The Pythagorean theorem relates the sides of a right triangle",
	"Entropy tends to increase in an isolated system",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	seedCount := flag.Int("seed", 200, "number of messages to index before the run")
	flag.Parse()

	queries := []string{
		"motion force",
		"derivative function",
		"energy",
		"quadratic roots",
		"cell biology",
		"momentum collision",
		"integration",
		"chemical bonds",
		"triangle theorem",
		"entropy system",
		"instantaneous rate",
		"light energy",
	}

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		SeedCount:   *seedCount,
		Queries:     queries,
	}

	fmt.Println("=== Chat Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Seed:        %d messages\n", cfg.SeedCount)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if err := seedMessages(client, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
		os.Exit(1)
	}

	stats := runLoadTest(client, cfg)
	printReport(stats, cfg.Duration)
}

func seedMessages(client *http.Client, cfg Config) error {
	fmt.Print("Seeding")
	roles := []string{"user", "assistant"}
	for i := 0; i < cfg.SeedCount; i++ {
		msg := map[string]string{
			"id":        fmt.Sprintf("loadtest-%d-%d", time.Now().UnixNano(), i),
			"content":   seedContents[i%len(seedContents)],
			"role":      roles[i%len(roles)],
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		body, _ := json.Marshal(msg)

		resp, err := client.Post(cfg.BaseURL+"/search/index", "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("index returned status %d", resp.StatusCode)
		}
		if i%50 == 0 {
			fmt.Print(".")
		}
	}
	fmt.Println(" done!")
	return nil
}

func runLoadTest(client *http.Client, cfg Config) *Stats {
	stats := NewStats()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			queryIdx := workerID

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				query := cfg.Queries[queryIdx%len(cfg.Queries)]

				var req *http.Request
				// Every fourth request exercises suggestions instead of search.
				if queryIdx%4 == 3 {
					req = mustNewSuggestRequest(ctx, cfg.BaseURL, query)
				} else {
					req = mustNewSearchRequest(ctx, cfg.BaseURL, query)
				}
				queryIdx++

				start := time.Now()
				resp, err := client.Do(req)
				duration := time.Since(start)

				if err != nil {
					stats.RecordRequest(duration, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				stats.RecordRequest(duration, resp.StatusCode, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func mustNewSearchRequest(ctx context.Context, baseURL, query string) *http.Request {
	body, _ := json.Marshal(map[string]any{"query": query, "limit": 10})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+"/search/search", bytes.NewReader(body))
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func mustNewSuggestRequest(ctx context.Context, baseURL, query string) *http.Request {
	// Use the first few characters of the query as a partial.
	partial := query
	if len(partial) > 4 {
		partial = partial[:4]
	}
	rawURL := fmt.Sprintf("%s/search/suggestions?q=%s&limit=10", baseURL, url.QueryEscape(partial))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}
	return req
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		fmt.Printf("Error Rate:      %.2f%%\n", errorRate)
		rps := float64(total) / duration.Seconds()
		fmt.Printf("Requests/sec:    %.2f\n", rps)
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
