package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assetedge/market"
)

// Category is one of the five canned-query dashboard groupings.
type Category string

const (
	CategoryAll           Category = "all"
	CategoryYTD           Category = "ytd"
	CategoryQTD           Category = "qtd"
	CategoryMTD           Category = "mtd"
	CategoryNonPerforming Category = "non_performing"
)

// Categories lists all dashboard categories in display order.
var Categories = []Category{
	CategoryAll,
	CategoryYTD,
	CategoryQTD,
	CategoryMTD,
	CategoryNonPerforming,
}

// Endpoint returns the category's path suffix on the query engine.
func (c Category) Endpoint() string {
	if c == CategoryNonPerforming {
		return "non-performing"
	}
	return string(c)
}

// Title returns the category's display heading.
func (c Category) Title() string {
	switch c {
	case CategoryAll:
		return "Top Performing Indexes"
	case CategoryYTD:
		return "Top 5 YTD Performers"
	case CategoryQTD:
		return "Top 5 QTD Performers"
	case CategoryMTD:
		return "Top 5 MTD Performers"
	case CategoryNonPerforming:
		return "Non-performing Indexes"
	}
	return string(c)
}

// cannedQueries holds the predefined question sent for each category.
var cannedQueries = map[Category]string{
	CategoryAll:           "Show the top performing market indexes across all timeframes with their MTD, QTD and YTD performance",
	CategoryYTD:           "Show the top 5 performing market indexes Year to Date (YTD)",
	CategoryQTD:           "Show the top 5 performing market indexes Quarter to Date (QTD)",
	CategoryMTD:           "Show the top 5 performing market indexes Month to Date (MTD)",
	CategoryNonPerforming: "Show the market indexes with negative performance across all timeframes",
}

// CategoryState is one category's independently tracked slot.
type CategoryState struct {
	Records []market.PerformanceRecord `json:"records"`
	Loading bool                       `json:"loading"`
	Err     string                     `json:"error,omitempty"`
}

// DashboardService fetches all five categories concurrently. Each fetch
// owns a disjoint slot in the state map, so a failure or slow response in
// one category never affects the others. No automatic retry is performed.
type DashboardService struct {
	client    QueryExecutor
	extractor *market.Extractor
	timeout   time.Duration
	logger    func(string)

	mu     sync.Mutex
	states map[Category]*CategoryState
}

// NewDashboardService creates a DashboardService. timeout bounds each
// category fetch so an unresponsive endpoint degrades to an error state
// instead of loading forever.
func NewDashboardService(client QueryExecutor, extractor *market.Extractor, timeout time.Duration, logger func(string)) *DashboardService {
	states := make(map[Category]*CategoryState, len(Categories))
	for _, cat := range Categories {
		states[cat] = &CategoryState{Records: []market.PerformanceRecord{}}
	}
	return &DashboardService{
		client:    client,
		extractor: extractor,
		timeout:   timeout,
		logger:    logger,
		states:    states,
	}
}

func (d *DashboardService) log(msg string) {
	if d.logger != nil {
		d.logger(msg)
	}
}

// Refresh launches one fetch per category and returns immediately. The
// returned WaitGroup lets callers (tests, shutdown) wait for completion;
// interactive callers poll Snapshot instead.
func (d *DashboardService) Refresh(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, cat := range Categories {
		d.mu.Lock()
		d.states[cat].Loading = true
		d.states[cat].Err = ""
		d.mu.Unlock()

		wg.Add(1)
		go func(cat Category) {
			defer wg.Done()
			d.fetchCategory(ctx, cat)
		}(cat)
	}
	return &wg
}

func (d *DashboardService) fetchCategory(ctx context.Context, cat Category) {
	fetchCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	raw, err := d.client.ExecuteCategory(fetchCtx, cat, cannedQueries[cat])

	d.mu.Lock()
	defer d.mu.Unlock()
	state := d.states[cat]
	state.Loading = false
	if err != nil {
		// Records keep their last-known value; only this slot errors.
		state.Err = err.Error()
		d.log(fmt.Sprintf("[DASHBOARD] %s fetch failed: %v", cat, err))
		return
	}
	state.Err = ""
	state.Records = d.extractor.Extract(raw)
	d.log(fmt.Sprintf("[DASHBOARD] %s fetch complete, %d records", cat, len(state.Records)))
}

// Snapshot returns a copy of every category's current state.
func (d *DashboardService) Snapshot() map[Category]CategoryState {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[Category]CategoryState, len(d.states))
	for cat, state := range d.states {
		cp := *state
		cp.Records = make([]market.PerformanceRecord, len(state.Records))
		copy(cp.Records, state.Records)
		out[cat] = cp
	}
	return out
}

// CategoryRecords returns the last fetched records for one category.
func (d *DashboardService) CategoryRecords(cat Category) ([]market.PerformanceRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, ok := d.states[cat]
	if !ok {
		return nil, WrapError("dashboard", "CategoryRecords", fmt.Errorf("unknown category %q", cat))
	}
	records := make([]market.PerformanceRecord, len(state.Records))
	copy(records, state.Records)
	return records, nil
}
