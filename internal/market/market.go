package market

import "strings"

// Market is a resolved, exchange-native trading pair.
type Market struct {
	Exchange string `json:"exchange"`
	Base     string `json:"base"`
	Quote    string `json:"quote"`
	Symbol   string `json:"symbol"`
	Spot     bool   `json:"spot"`
}

// Pair renders the unified "BASE/QUOTE" form.
func (m Market) Pair() string {
	return Pair(m.Base, m.Quote)
}

// Instrument is one entry of an exchange's market list.
type Instrument struct {
	Symbol      string
	Base        string
	Quote       string
	Spot        bool
	Active      bool
	QuoteVolume float64
}

// Matches compares base and quote case-insensitively.
func (i Instrument) Matches(base, quote string) bool {
	return strings.EqualFold(strings.TrimSpace(i.Base), strings.TrimSpace(base)) &&
		strings.EqualFold(strings.TrimSpace(i.Quote), strings.TrimSpace(quote))
}

func Pair(base, quote string) string {
	return strings.ToUpper(strings.TrimSpace(base)) + "/" + strings.ToUpper(strings.TrimSpace(quote))
}
