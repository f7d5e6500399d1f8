// Package tx holds the batch admission operations and the ledger adaptor
// contract they run against. Operations report recoverable input problems
// through result codes; returned errors are reserved for ledger faults and
// invariant violations that reject the batch.
package tx

// Result is an operation-level result code.
type Result int

const (
	// ResultOK means the operation was admitted to the batch.
	ResultOK Result = iota
	// ResultMalformed covers non-positive amounts or prices, degenerate or
	// pool-share pairs, non-commutative assets, and unusable trustlines.
	ResultMalformed
	// ResultNoSpeedexConfig means the ledger carries no exchange
	// configuration entry.
	ResultNoSpeedexConfig
	// ResultInvalidTradingPair means the pair is not listed in the exchange
	// configuration.
	ResultInvalidTradingPair
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "CREATE_SPEEDEX_IOC_OFFER_OK"
	case ResultMalformed:
		return "CREATE_SPEEDEX_IOC_OFFER_MALFORMED"
	case ResultNoSpeedexConfig:
		return "CREATE_SPEEDEX_IOC_OFFER_NO_SPEEDEX_CONFIG"
	case ResultInvalidTradingPair:
		return "CREATE_SPEEDEX_IOC_OFFER_INVALID_TRADING_PAIR"
	}
	return "CREATE_SPEEDEX_IOC_OFFER_UNKNOWN"
}

// Success reports whether the operation was admitted.
func (r Result) Success() bool {
	return r == ResultOK
}
