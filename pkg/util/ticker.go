package util

// Alert tickers arrive in TradingView form with the quote currency as the
// trailing 3 characters, e.g. "DOGEKRW". Upbit order books use "QUOTE-BASE".
// Inputs shorter than 4 characters produce degenerate output; callers are
// expected to validate alerts upstream.

// ToExchangeTicker converts an alert ticker to exchange form.
// e.g. DOGEKRW -> KRW-DOGE
func ToExchangeTicker(ticker string) string {
	if len(ticker) < 3 {
		return ticker
	}
	quote := ticker[len(ticker)-3:]
	base := ticker[:len(ticker)-3]
	return quote + "-" + base
}

// ToBaseAsset strips the trailing quote code from an alert ticker.
// e.g. DOGEKRW -> DOGE
func ToBaseAsset(ticker string) string {
	if len(ticker) < 3 {
		return ticker
	}
	return ticker[:len(ticker)-3]
}
