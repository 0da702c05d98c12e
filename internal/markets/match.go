package markets

type Strategy string

const (
	StrategyOracle  Strategy = "oracle"
	StrategyLexical Strategy = "lexical"
)

// Match pairs a Polymarket listing with the Kalshi listing judged to resolve on the same event.
type Match struct {
	Polymarket Market   `json:"polymarket"`
	Kalshi     Market   `json:"kalshi"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Strategy   Strategy `json:"strategy"`
}
