package market

import "strings"

// ResultKind routes a query result to either the tabular performance view
// or a plain text rendering.
type ResultKind string

const (
	KindTabular ResultKind = "tabular"
	KindPlain   ResultKind = "plain"
)

// String results are tabular when any timeframe section heading appears.
var tabularMarkers = []string{
	"### Month to Date",
	"### Quarter to Date",
	"### Year to Date",
}

// Object results are tabular only when all three timeframe keys are present.
var tabularObjectKeys = []string{
	"Month to Date (MTD)",
	"Quarter to Date (QTD)",
	"Year to Date (YTD)",
}

// Classify decides how a result should be rendered. Pending (nil/empty)
// results classify as plain.
func Classify(qr *QueryResult) ResultKind {
	if qr.IsZero() {
		return KindPlain
	}
	if qr.Object != nil {
		for _, key := range tabularObjectKeys {
			if _, ok := qr.Object[key]; !ok {
				return KindPlain
			}
		}
		return KindTabular
	}
	for _, marker := range tabularMarkers {
		if strings.Contains(qr.Text, marker) {
			return KindTabular
		}
	}
	return KindPlain
}
