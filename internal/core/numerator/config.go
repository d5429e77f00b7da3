package numerator

// Strategy selects how numbers are drawn.
type Strategy int

const (
	// StrategyStrict increments the counter in the caller's transaction.
	// A rolled back document gives its number back, so the series has no gaps.
	StrategyStrict Strategy = iota

	// StrategyCached reserves a range outside the transaction and hands it
	// out from memory. Faster; restarts and rollbacks leave gaps.
	StrategyCached
)

// Options tune one GetNextNumber call.
type Options struct {
	Strategy Strategy
	// RangeSize is how many numbers StrategyCached reserves at once (default 50).
	RangeSize int64
}

// DefaultOptions returns the strict strategy.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Config describes one number series.
type Config struct {
	// Prefix starts every number, e.g. "PUR".
	Prefix string

	IncludeYear bool

	// PadWidth is the minimum width of the counter (default 5).
	PadWidth int

	// ResetPeriod is "year", "month" or "never".
	ResetPeriod string
}

// DefaultConfig returns a yearly series formatted PREFIX-YYYY-00001.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}
