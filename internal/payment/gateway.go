// Package payment is the boundary to the external card processor.  The
// processor is treated as a black box that creates and retrieves
// payment intents; the auction core only ever proceeds on a retrieved
// intent whose status is "succeeded".  Amounts cross this boundary in
// minor units (paise for INR) as the processor requires.
package payment

import "context"

// StatusSucceeded is the only intent status the auction core acts on.
// Every other status (requires_payment_method, processing, canceled,
// ...) is treated uniformly as not-yet-successful.
const StatusSucceeded = "succeeded"

// Intent is the processor-side record of one bounded charge.  Ref is
// the processor's identifier used to retrieve the intent later;
// ClientSecret is the opaque handle handed to the paying client so it
// can complete the charge out of band.
type Intent struct {
	Ref          string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	AmountMinor  int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

// Gateway creates and retrieves payment intents.  Calls are bounded,
// synchronous request/response operations with no internal retry loop;
// failures surface immediately to the caller, which decides whether to
// re-attempt.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string, description string) (*Intent, error)
	RetrieveIntent(ctx context.Context, ref string) (*Intent, error)
}
