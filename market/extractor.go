package market

import (
	"fmt"
	"regexp"
	"strings"
)

// Extractor pulls PerformanceRecords out of the loosely structured text the
// query engine returns. The engine's output is LLM-generated prose, so no
// single format can be assumed: section headings come in two styles, entry
// lines in at least five, and feeds may mix styles across lines. The
// extractor therefore tries every pattern and degrades to an empty result
// instead of failing.
type Extractor struct {
	logger func(string)
}

// NewExtractor creates an Extractor. logger may be nil.
func NewExtractor(logger func(string)) *Extractor {
	return &Extractor{logger: logger}
}

func (e *Extractor) log(msg string) {
	if e.logger != nil {
		e.logger(msg)
	}
}

func (e *Extractor) logf(format string, args ...interface{}) {
	e.log(fmt.Sprintf(format, args...))
}

// entryPattern recognizes one line/entry shape. Patterns are evaluated in
// order from most to least specific; a span claimed by an earlier pattern is
// not re-matched by later ones, but matches from different patterns on
// disjoint spans are all accumulated.
type entryPattern struct {
	name string
	re   *regexp.Regexp
	// capture group indexes into the submatch slice
	nameIdx, idIdx, valueIdx int
}

var entryPatterns = []entryPattern{
	{
		// "Fund Name: X - Market Index ID: N - YTD Performance: P%"
		name:     "detailed",
		re:       regexp.MustCompile(`Fund Name:\s*(.*?)\s*-\s*Market Index ID:\s*(\d+)\s*-\s*(?:MTD|QTD|YTD) Performance:\s*(-?[\d.]+)%`),
		nameIdx:  1,
		idIdx:    2,
		valueIdx: 3,
	},
	{
		// "1. **Fund Name:** X - **Market Index ID:** N - **YTD Performance:** P%"
		name:     "detailed-bold",
		re:       regexp.MustCompile(`\d+\.\s*\*\*Fund Name:\*\*\s*(.*?)\s*-\s*\*\*Market Index ID:\*\*\s*(\d+)\s*-\s*\*\*(?:MTD|QTD|YTD) Performance:\*\*\s*(-?[\d.]+)%`),
		nameIdx:  1,
		idIdx:    2,
		valueIdx: 3,
	},
	{
		// "1. **X**: P%"
		name:     "numbered-bold",
		re:       regexp.MustCompile(`\d+\.\s*\*\*(.*?)\*\*:\s*(-?[\d.]+)%`),
		nameIdx:  1,
		valueIdx: 2,
	},
	{
		// "X: P%"
		name:     "colon",
		re:       regexp.MustCompile(`(.*?)\s*:\s*(-?[\d.]+)%`),
		nameIdx:  1,
		valueIdx: 2,
	},
	{
		// "X YTD - P%" and other free-form bullet lines
		name:     "loose",
		re:       regexp.MustCompile(`(?m)^\s*(.*?)\s*(?:MTD|QTD|YTD)?\s*[:-]\s*(-?[\d.]+)%`),
		nameIdx:  1,
		valueIdx: 2,
	},
}

// sectionPatterns locate one timeframe's body within the full text. The
// markdown heading style and the free-text sentence style are both
// recognized; the first pattern that matches wins for that timeframe.
var sectionPatterns = map[Timeframe][]*regexp.Regexp{
	TimeframeMTD: {
		regexp.MustCompile(`(?is)### (?:Month to Date|MTD)(.*?)(?:###|\z)`),
		regexp.MustCompile(`(?is)Here are the top 5 Index performing summaries in Month to Date \(MTD\):(.*?)These performances`),
	},
	TimeframeQTD: {
		regexp.MustCompile(`(?is)### (?:Quarter to Date|QTD)(.*?)(?:###|\z)`),
	},
	TimeframeYTD: {
		regexp.MustCompile(`(?is)### (?:Year to Date|YTD)(.*?)(?:###|\z)`),
		regexp.MustCompile(`(?is)Here are the top 5 performing Index summaries for Year to Date \(YTD\):(.*?)These percentages`),
	},
}

// timeframeHeading strips a leftover "### ... Timeframe" heading from a
// section body before entry matching.
var timeframeHeading = regexp.MustCompile(`(?i)###\s*.*?Timeframe`)

// Extract parses raw engine text into a deduplicated record list. It never
// fails: malformed or unrecognized input yields an empty slice and a log
// line. Records come back in first-insertion order of distinct index names;
// an index seen under several timeframe sections is merged into one record
// with per-field last-writer-wins.
func (e *Extractor) Extract(raw string) []PerformanceRecord {
	idx := newRecordIndex()

	for _, tf := range Timeframes {
		for _, sec := range sectionPatterns[tf] {
			m := sec.FindStringSubmatch(raw)
			if m == nil {
				continue
			}
			body := timeframeHeading.ReplaceAllString(m[1], "")
			e.scanEntries(body, tf, idx)
			break
		}
	}

	// Fallback: no section produced anything, so scan the whole text and
	// infer each entry's timeframe from the matched span itself.
	if idx.len() == 0 {
		e.log("[EXTRACT] no section matches, falling back to whole-text scan")
		e.scanEntriesInferred(raw, idx)
	}

	records := idx.records()
	if len(records) == 0 && strings.TrimSpace(raw) != "" {
		e.logf("[EXTRACT] no performance entries recognized in %d bytes of text", len(raw))
	}
	return records
}

// scanEntries runs every entry pattern over one section body, assigning all
// matches to the given timeframe.
func (e *Extractor) scanEntries(body string, tf Timeframe, idx *recordIndex) {
	var claimed []span
	for _, p := range entryPatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(body, -1) {
			s := span{loc[0], loc[1]}
			if s.overlapsAny(claimed) {
				continue
			}
			claimed = append(claimed, s)
			idx.upsert(p.capture(body, loc), tf)
		}
	}
}

// scanEntriesInferred is the whole-text fallback: the timeframe is taken
// from a literal "QTD" or "YTD" inside the matched span, defaulting to MTD.
func (e *Extractor) scanEntriesInferred(raw string, idx *recordIndex) {
	var claimed []span
	for _, p := range entryPatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(raw, -1) {
			s := span{loc[0], loc[1]}
			if s.overlapsAny(claimed) {
				continue
			}
			claimed = append(claimed, s)

			tf := TimeframeMTD
			matched := raw[loc[0]:loc[1]]
			if strings.Contains(matched, "QTD") {
				tf = TimeframeQTD
			}
			if strings.Contains(matched, "YTD") {
				tf = TimeframeYTD
			}
			idx.upsert(p.capture(raw, loc), tf)
		}
	}
}

// entryMatch is one normalized pattern hit.
type entryMatch struct {
	name  string
	id    string
	value string
}

func (p entryPattern) capture(text string, loc []int) entryMatch {
	group := func(i int) string {
		if i == 0 || loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}
	return entryMatch{
		name:  strings.TrimSpace(group(p.nameIdx)),
		id:    group(p.idIdx),
		value: strings.TrimSpace(group(p.valueIdx)),
	}
}

type span struct{ start, end int }

func (s span) overlapsAny(spans []span) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

// recordIndex accumulates records keyed by index name, preserving first
// insertion order.
type recordIndex struct {
	byName map[string]*PerformanceRecord
	order  []string
}

func newRecordIndex() *recordIndex {
	return &recordIndex{byName: make(map[string]*PerformanceRecord)}
}

func (ri *recordIndex) len() int { return len(ri.order) }

func (ri *recordIndex) upsert(m entryMatch, tf Timeframe) {
	if m.name == "" || m.value == "" {
		return
	}
	rec, ok := ri.byName[m.name]
	if !ok {
		rec = &PerformanceRecord{IndexName: m.name}
		ri.byName[m.name] = rec
		ri.order = append(ri.order, m.name)
	}
	if m.id != "" && rec.MarketIndexID == "" {
		rec.MarketIndexID = m.id
	}
	rec.setValue(tf, m.value)
}

func (ri *recordIndex) records() []PerformanceRecord {
	out := make([]PerformanceRecord, 0, len(ri.order))
	for _, name := range ri.order {
		out = append(out, *ri.byName[name])
	}
	return out
}
