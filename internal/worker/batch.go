package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/parishscope/internal/model"
)

// Mode selects what a batch job does with each URL
type Mode string

const (
	ModeDirectory Mode = "directory"
	ModeFacts     Mode = "facts"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDirectory:
		return ModeDirectory, nil
	case ModeFacts:
		return ModeFacts, nil
	}
	return "", fmt.Errorf("unknown batch mode %q (want directory or facts)", s)
}

// WorkSource is the engine surface batch jobs call into
type WorkSource interface {
	ProcessDirectory(ctx context.Context, url string) ([]model.ParishRecord, error)
	ProcessParishFacts(ctx context.Context, url string) ([]model.FactRecord, error)
}

// BatchJob processes one URL in one mode
type BatchJob struct {
	Index  int
	URL    string
	Mode   Mode
	Source WorkSource
}

// Execute runs the job against its work source
func (j *BatchJob) Execute(ctx context.Context) Result {
	start := time.Now()
	res := &BatchResult{Index: j.Index, URL: j.URL, Mode: j.Mode}

	switch j.Mode {
	case ModeFacts:
		res.Facts, res.Error = j.Source.ProcessParishFacts(ctx, j.URL)
	default:
		res.Parishes, res.Error = j.Source.ProcessDirectory(ctx, j.URL)
	}

	res.Duration = time.Since(start)
	return res
}

// BatchResult is the outcome of one batch job
type BatchResult struct {
	Index    int
	URL      string
	Mode     Mode
	Parishes []model.ParishRecord
	Facts    []model.FactRecord
	Duration time.Duration
	Error    error
}

// GetError returns the error from the batch result
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor fans URLs out over a worker pool
type BatchProcessor struct {
	source      WorkSource
	concurrency int
	queueSize   int
	onResult    func(*BatchResult)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(source WorkSource, concurrency, queueSize int) *BatchProcessor {
	return &BatchProcessor{
		source:      source,
		concurrency: concurrency,
		queueSize:   queueSize,
	}
}

// OnResult registers a progress callback
func (b *BatchProcessor) OnResult(fn func(*BatchResult)) {
	b.onResult = fn
}

// ProcessURLs runs every URL and returns results in input order
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string, mode Mode) []*BatchResult {
	out := make([]*BatchResult, len(urls))
	if len(urls) == 0 {
		return out
	}

	pool := NewPool(b.concurrency, b.queueSize)
	if b.onResult != nil {
		pool.OnResult(func(r Result) { b.onResult(r.(*BatchResult)) })
	}
	pool.Start(ctx)

	for i, u := range urls {
		job := &BatchJob{Index: i, URL: u, Mode: mode, Source: b.source}
		if err := pool.Submit(ctx, job); err != nil {
			out[i] = &BatchResult{Index: i, URL: u, Mode: mode, Error: err}
		}
	}

	for _, r := range pool.Wait() {
		br := r.(*BatchResult)
		out[br.Index] = br
	}
	for i := range out {
		if out[i] == nil {
			out[i] = &BatchResult{Index: i, URL: urls[i], Mode: mode, Error: context.Canceled}
		}
	}
	return out
}

// ProcessFile reads URLs from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, mode Mode) ([]*BatchResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls, mode), nil
}

// ReadURLsFromFile reads URLs one per line, skipping blanks and # comments.
// A trailing "# note" on a URL line is ignored too.
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
