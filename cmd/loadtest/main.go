// Command loadtest drives concurrent college searches against a running
// searcher and reports latency percentiles and status codes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/middleware"
)

const unavailableMessage = "college catalog is temporarily unavailable"

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Requests    []url.Values
}

// defaultRequests mixes broad, narrow, lenient, and invalid searches so the
// run touches every path of the pipeline.
func defaultRequests() []url.Values {
	return []url.Values{
		{"course_level": {"Undergraduate"}},
		{"course_level": {"UG"}, "state": {"kerala"}},
		{"course_level": {"BTech"}, "branch": {"cs"}},
		{"course_level": {"Postgraduate"}, "max_fees": {"150000"}},
		{"course_level": {"PG"}, "target_score": {"150"}},
		{"course_level": {"Diploma"}, "location": {"Ko"}},
		{"course_level": {"Undergraduate"}, "college_name": {"tech"}, "max_fees": {"abc"}},
		{"course_level": {"Undergraduate"}, "college_name": {"zzz"}},
		{"course_level": {"PhD"}},
		{"state": {"Kerala"}},
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Requests:    defaultRequests(),
	}

	fmt.Println("=== College Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Requests:    %d shapes\n", len(cfg.Requests))
	fmt.Println()

	stats := runLoadTest(cfg)
	stats.Report(os.Stdout, cfg.Duration)
	if stats.totalRequests.Load() == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				form := cfg.Requests[next%len(cfg.Requests)]
				next++
				search(ctx, client, cfg.BaseURL, form, stats)
			}
		}(w)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
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

func search(ctx context.Context, client *http.Client, baseURL string, form url.Values, stats *Stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/search", strings.NewReader(form.Encode()))
	if err != nil {
		stats.RecordRequest(0, 0, err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(middleware.RequestIDHeader, "loadtest-"+uuid.NewString())

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		stats.RecordRequest(elapsed, 0, err)
		return
	}
	defer resp.Body.Close()
	stats.RecordRequest(elapsed, resp.StatusCode, nil)

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return
	}
	var body struct {
		Results []json.RawMessage `json:"results"`
		Message string            `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return
	}
	stats.RecordBody(len(body.Results), body.Message)
}
