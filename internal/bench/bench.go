// Package bench compares extraction models on the same capture: every target
// runs the capture several times in parallel and the results are summarised
// per target.
package bench

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"lenslingua/internal/capture"
	"lenslingua/internal/extract"
	"lenslingua/internal/llm"
	"lenslingua/internal/logging"
	"lenslingua/internal/model"
)

// Target is one provider/model combination under test.
type Target struct {
	Name   string
	Client llm.Client
}

type Options struct {
	Runs           int
	Stagger        time.Duration
	Timeout        time.Duration
	TargetLanguage string
	MaxImageBytes  int64
	MaxAudioBytes  int64
}

type Result struct {
	Target   string        `json:"target"`
	Run      int           `json:"run"`
	Duration time.Duration `json:"duration"`
	Items    int           `json:"items"`
	Tokens   int           `json:"tokens"`
	Error    string        `json:"error,omitempty"`
}

type Summary struct {
	Target      string        `json:"target"`
	Runs        int           `json:"runs"`
	Succeeded   int           `json:"succeeded"`
	AvgDuration time.Duration `json:"avg_duration"`
	MinDuration time.Duration `json:"min_duration"`
	MaxDuration time.Duration `json:"max_duration"`
	AvgItems    float64       `json:"avg_items"`
	AvgTokens   int           `json:"avg_tokens"`
}

// meter records token usage of the calls passing through it.
type meter struct {
	llm.Client
	tokens atomic.Int64
}

func (m *meter) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	resp, err := m.Client.Generate(ctx, req)
	if err == nil {
		m.tokens.Add(int64(resp.TotalTokens))
	}
	return resp, err
}

// Run executes opts.Runs extractions of media per target. Starts are staggered
// by opts.Stagger to avoid bursting the provider.
func Run(ctx context.Context, targets []Target, kind model.Kind, m capture.Media, opts Options) ([]Result, error) {
	if len(targets) == 0 {
		return nil, errors.New("no targets to benchmark")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown capture kind %q", kind)
	}
	if opts.Runs <= 0 {
		opts.Runs = 1
	}
	log := logging.NewLogger(ctx)
	log.Infof("🚀 Starting %d parallel runs over %d targets...", opts.Runs*len(targets), len(targets))

	total := opts.Runs * len(targets)
	resultsChan := make(chan Result, total)
	var wg sync.WaitGroup

	index := 0
	for _, target := range targets {
		for run := 1; run <= opts.Runs; run++ {
			wg.Add(1)
			go func(target Target, run, index int) {
				defer wg.Done()
				timer := time.NewTimer(time.Duration(index) * opts.Stagger)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-ctx.Done():
				}
				if err := ctx.Err(); err != nil {
					resultsChan <- Result{Target: target.Name, Run: run, Error: err.Error()}
					return
				}
				resultsChan <- runOnce(ctx, target, run, kind, m, opts)
			}(target, run, index)
			index++
		}
	}
	wg.Wait()
	close(resultsChan)

	results := make([]Result, 0, total)
	for r := range resultsChan {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Target != results[j].Target {
			return results[i].Target < results[j].Target
		}
		return results[i].Run < results[j].Run
	})
	return results, nil
}

func runOnce(ctx context.Context, target Target, run int, kind model.Kind, m capture.Media, opts Options) Result {
	log := logging.NewLogger(ctx).WithField("target", target.Name).WithField("run", run)
	res := Result{Target: target.Name, Run: run}

	metered := &meter{Client: target.Client}
	client, err := extract.NewClient(metered, extract.Options{
		DefaultTargetLanguage: opts.TargetLanguage,
		MaxImageBytes:         opts.MaxImageBytes,
		MaxAudioBytes:         opts.MaxAudioBytes,
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	var out model.Extraction
	if kind == model.KindAudio {
		out, err = client.ExtractFromAudio(ctx, m.Data, m.MIMEType, opts.TargetLanguage)
	} else {
		out, err = client.ExtractFromImage(ctx, m.Data, m.MIMEType, opts.TargetLanguage)
	}
	res.Duration = time.Since(start)
	res.Tokens = int(metered.tokens.Load())
	if err != nil {
		log.Warnf("❌ failed after %v: %v", res.Duration.Round(time.Millisecond), err)
		res.Error = err.Error()
		return res
	}
	res.Items = len(out.Items)
	log.Infof("✅ completed: %d items, %d tokens, %v", res.Items, res.Tokens, res.Duration.Round(time.Millisecond))
	return res
}

// Summarize aggregates results per target. Durations and averages cover
// successful runs only.
func Summarize(results []Result) []Summary {
	byTarget := map[string]*Summary{}
	var order []string
	items := map[string]int{}
	tokens := map[string]int{}
	totalDur := map[string]time.Duration{}

	for _, r := range results {
		s, ok := byTarget[r.Target]
		if !ok {
			s = &Summary{Target: r.Target}
			byTarget[r.Target] = s
			order = append(order, r.Target)
		}
		s.Runs++
		if r.Error != "" {
			continue
		}
		s.Succeeded++
		if s.Succeeded == 1 || r.Duration < s.MinDuration {
			s.MinDuration = r.Duration
		}
		if r.Duration > s.MaxDuration {
			s.MaxDuration = r.Duration
		}
		totalDur[r.Target] += r.Duration
		items[r.Target] += r.Items
		tokens[r.Target] += r.Tokens
	}

	sort.Strings(order)
	out := make([]Summary, 0, len(order))
	for _, name := range order {
		s := byTarget[name]
		if s.Succeeded > 0 {
			s.AvgDuration = totalDur[name] / time.Duration(s.Succeeded)
			s.AvgItems = float64(items[name]) / float64(s.Succeeded)
			s.AvgTokens = tokens[name] / s.Succeeded
		}
		out = append(out, *s)
	}
	return out
}
