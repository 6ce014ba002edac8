// Command loadtest drives the search service with a fixed query mix and
// reports latency and recall-related counters separately for full and
// champion-list ranking.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

var defaultQueries = []string{
	"فوتبال",
	"تیم ملی فوتبال",
	"لیگ برتر",
	"انتخابات مجلس",
	"قیمت نفت",
	"بازار بورس",
	"دانشگاه تهران",
	"کرونا واکسن",
	"جام جهانی",
	"استقلال پرسپولیس",
	"oil prices",
	"world cup",
}

type config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Modes       []bool
	Queries     []string
}

type searchResponse struct {
	TotalHits int               `json:"total_hits"`
	Results   []json.RawMessage `json:"results"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "concurrent workers per mode")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "results per query")
	mode := flag.String("mode", "both", "ranking mode: full, champion or both")
	queriesFile := flag.String("queries", "", "file with one query per line")
	flag.Parse()

	cfg := config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Limit:       *limit,
		Queries:     defaultQueries,
	}
	switch *mode {
	case "full":
		cfg.Modes = []bool{false}
	case "champion":
		cfg.Modes = []bool{true}
	case "both":
		cfg.Modes = []bool{false, true}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
	if *queriesFile != "" {
		queries, err := readQueries(*queriesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
		cfg.Queries = queries
	}

	fmt.Println("=== newsrank load test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d per mode\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n\n", len(cfg.Queries))

	stats, err := run(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}

	var total int64
	for i, champions := range cfg.Modes {
		s := stats[i].summarize()
		total += s.Requests
		s.print(os.Stdout, modeName(champions), cfg.Duration)
	}
	if total == 0 {
		fmt.Println("WARNING: no requests completed. Is the service running?")
		os.Exit(1)
	}
}

func modeName(champions bool) string {
	if champions {
		return "champion"
	}
	return "full"
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s contains no queries", path)
	}
	return queries, nil
}

// run starts cfg.Concurrency workers for every mode and returns one
// modeStats per entry of cfg.Modes.
func run(ctx context.Context, cfg config) ([]*modeStats, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * len(cfg.Modes) * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * len(cfg.Modes) * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	stats := make([]*modeStats, len(cfg.Modes))
	g, ctx := errgroup.WithContext(ctx)
	for i, champions := range cfg.Modes {
		stats[i] = newModeStats()
		for w := 0; w < cfg.Concurrency; w++ {
			g.Go(func() error {
				for n := w; ctx.Err() == nil; n++ {
					query := cfg.Queries[n%len(cfg.Queries)]
					searchOnce(ctx, client, cfg, query, champions, stats[i])
				}
				return nil
			})
		}
	}
	return stats, g.Wait()
}

func searchOnce(ctx context.Context, client *http.Client, cfg config, query string, champions bool, stats *modeStats) {
	target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d&champions=%t",
		cfg.BaseURL, url.QueryEscape(query), cfg.Limit, champions)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		stats.record(0, 0, 0, 0, err)
		return
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			stats.record(time.Since(start), 0, 0, 0, err)
		}
		return
	}
	defer resp.Body.Close()

	var body searchResponse
	err = json.NewDecoder(resp.Body).Decode(&body)
	latency := time.Since(start)
	if resp.StatusCode != http.StatusOK {
		err = nil
	}
	stats.record(latency, resp.StatusCode, body.TotalHits, len(body.Results), err)
}
