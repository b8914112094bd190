package market

import "encoding/json"

// Timeframe identifies one of the three reporting windows used by the
// query engine's performance summaries.
type Timeframe string

const (
	TimeframeMTD Timeframe = "mtd"
	TimeframeQTD Timeframe = "qtd"
	TimeframeYTD Timeframe = "ytd"
)

// Timeframes lists all timeframes in reporting order.
var Timeframes = []Timeframe{TimeframeMTD, TimeframeQTD, TimeframeYTD}

// PerformanceRecord is one market index extracted from a raw engine response.
// Timeframe values are kept as decimal strings exactly as they appeared in
// the source text (sign preserved, no rounding); an empty string means the
// timeframe was not present in the text.
type PerformanceRecord struct {
	IndexName     string `json:"index_name"`
	MarketIndexID string `json:"market_index_id,omitempty"`
	MTD           string `json:"mtd,omitempty"`
	QTD           string `json:"qtd,omitempty"`
	YTD           string `json:"ytd,omitempty"`
}

// Value returns the stored decimal string for the given timeframe.
func (r *PerformanceRecord) Value(tf Timeframe) string {
	switch tf {
	case TimeframeMTD:
		return r.MTD
	case TimeframeQTD:
		return r.QTD
	case TimeframeYTD:
		return r.YTD
	}
	return ""
}

func (r *PerformanceRecord) setValue(tf Timeframe, v string) {
	switch tf {
	case TimeframeMTD:
		r.MTD = v
	case TimeframeQTD:
		r.QTD = v
	case TimeframeYTD:
		r.YTD = v
	}
}

// QueryResult is the payload the query engine returns for one question.
// The wire shape is {"qr": <string or object>}; exactly one of Text and
// Object is populated after unmarshaling.
type QueryResult struct {
	Text   string
	Object map[string]interface{}
}

// UnmarshalJSON accepts either a plain string or a JSON object, matching
// both response styles the engine is known to produce.
func (qr *QueryResult) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		qr.Text = s
		qr.Object = nil
		return nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err == nil {
		qr.Text = ""
		qr.Object = obj
		return nil
	}

	// Anything else (number, bool, array) is carried as raw text so the
	// caller can still render it.
	qr.Text = string(data)
	qr.Object = nil
	return nil
}

// MarshalJSON writes back whichever representation is populated.
func (qr QueryResult) MarshalJSON() ([]byte, error) {
	if qr.Object != nil {
		return json.Marshal(qr.Object)
	}
	return json.Marshal(qr.Text)
}

// IsZero reports whether the result carries no payload at all.
func (qr *QueryResult) IsZero() bool {
	return qr == nil || (qr.Text == "" && qr.Object == nil)
}
