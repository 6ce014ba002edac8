package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// modeStats accumulates the outcome of every request sent in one ranking
// mode.
type modeStats struct {
	mu          sync.Mutex
	requests    int64
	errors      int64
	zeroResults int64
	candidates  int64
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newModeStats() *modeStats {
	return &modeStats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

// record stores one request. status is 0 when the request never got a
// response.
func (s *modeStats) record(latency time.Duration, status int, totalHits, returned int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	if err != nil || status < 200 || status >= 300 {
		s.errors++
		if status != 0 {
			s.statusCodes[status]++
		}
		return
	}
	s.statusCodes[status]++
	s.latencies = append(s.latencies, latency)
	s.candidates += int64(totalHits)
	if returned == 0 {
		s.zeroResults++
	}
}

type summary struct {
	Requests      int64
	Errors        int64
	ZeroResults   int64
	AvgCandidates float64
	Min, Avg, Max time.Duration
	P50, P95, P99 time.Duration
	StdDev        time.Duration
	StatusCodes   map[int]int64
}

func (s *modeStats) summarize() summary {
	s.mu.Lock()
	latencies := make([]time.Duration, len(s.latencies))
	copy(latencies, s.latencies)
	out := summary{
		Requests:    s.requests,
		Errors:      s.errors,
		ZeroResults: s.zeroResults,
		StatusCodes: make(map[int]int64, len(s.statusCodes)),
	}
	for code, n := range s.statusCodes {
		out.StatusCodes[code] = n
	}
	if ok := s.requests - s.errors; ok > 0 {
		out.AvgCandidates = float64(s.candidates) / float64(ok)
	}
	s.mu.Unlock()

	if len(latencies) == 0 {
		return out
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	out.Avg = sum / time.Duration(len(latencies))
	out.Min = latencies[0]
	out.Max = latencies[len(latencies)-1]
	out.P50 = percentile(latencies, 50)
	out.P95 = percentile(latencies, 95)
	out.P99 = percentile(latencies, 99)

	var sumSquared float64
	for _, l := range latencies {
		diff := float64(l) - float64(out.Avg)
		sumSquared += diff * diff
	}
	out.StdDev = time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
	return out
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

func (s summary) print(w io.Writer, mode string, elapsed time.Duration) {
	fmt.Fprintf(w, "=== %s ===\n", mode)
	fmt.Fprintf(w, "Requests:        %d\n", s.Requests)
	fmt.Fprintf(w, "Errors:          %d\n", s.Errors)
	if s.Requests > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(s.Errors)/float64(s.Requests)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(s.Requests)/elapsed.Seconds())
	}
	fmt.Fprintf(w, "Zero Results:    %d\n", s.ZeroResults)
	fmt.Fprintf(w, "Avg Candidates:  %.1f\n", s.AvgCandidates)
	if s.Max > 0 {
		fmt.Fprintf(w, "Latency min/avg/max: %s / %s / %s\n", s.Min, s.Avg, s.Max)
		fmt.Fprintf(w, "Latency p50/p95/p99: %s / %s / %s\n", s.P50, s.P95, s.P99)
		fmt.Fprintf(w, "Latency stddev:      %s\n", s.StdDev)
	}
	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  HTTP %d: %d\n", code, s.StatusCodes[code])
	}
	fmt.Fprintln(w)
}
