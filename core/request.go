package core

import (
	"encoding/json"
)

// UserInfo carries the profile facts that shape the advisory prompt.
type UserInfo struct {
	// RiskLevel is the user's self-reported risk tolerance (e.g., "low", "medium", "high").
	RiskLevel string `json:"riskLevel"`

	// FavoriteAdvisor is the persona the recommendation should be voiced as.
	FavoriteAdvisor string `json:"favoriteAdvisor"`

	// FavoriteBook identifies the user's favorite investment book.
	FavoriteBook string `json:"favoriteBook"`
}

// StockHolding is a single position in the user's portfolio.
// Besides the symbol, holdings may carry arbitrary attributes
// (allocation, cost basis, notes) which are preserved verbatim.
type StockHolding struct {
	Symbol     string
	Attributes map[string]interface{}
}

// UnmarshalJSON keeps unknown fields instead of dropping them.
func (s *StockHolding) UnmarshalJSON(data []byte) error {
	raw := make(map[string]interface{})
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if sym, ok := raw["symbol"].(string); ok {
		s.Symbol = sym
	}
	delete(raw, "symbol")
	s.Attributes = raw
	return nil
}

// MarshalJSON flattens the symbol back alongside the extra attributes.
func (s StockHolding) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Attributes)+1)
	for k, v := range s.Attributes {
		out[k] = v
	}
	out["symbol"] = s.Symbol
	return json.Marshal(out)
}

// AdviceRequest is the inbound document for one advisory run.
// It is treated as immutable once decoded.
type AdviceRequest struct {
	UserID   string         `json:"userId"`
	Stocks   []StockHolding `json:"stocks"`
	UserInfo UserInfo       `json:"userInfo"`
}

// Tickers returns the holding symbols in request order.
func (r *AdviceRequest) Tickers() []string {
	tickers := make([]string, 0, len(r.Stocks))
	for _, s := range r.Stocks {
		tickers = append(tickers, s.Symbol)
	}
	return tickers
}
