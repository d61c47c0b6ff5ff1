package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-memory Gateway used by the engine tests and by local
// development when no processor credentials are configured.  Created
// intents start in "requires_payment_method" unless AutoSucceed is set;
// tests drive the lifecycle with Succeed.
type Fake struct {
	mu          sync.Mutex
	intents     map[string]*Intent
	AutoSucceed bool
}

// NewFake returns an empty Fake gateway.
func NewFake() *Fake {
	return &Fake{intents: make(map[string]*Intent)}
}

// CreateIntent records a new intent and hands back a reference and
// client secret shaped like the real processor's ("pi_..." and
// "pi_..._secret_...").
func (f *Fake) CreateIntent(_ context.Context, amountMinor int64, currency string, metadata map[string]string, _ string) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ref := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	status := "requires_payment_method"
	if f.AutoSucceed {
		status = StatusSucceeded
	}
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	in := &Intent{
		Ref:          ref,
		ClientSecret: ref + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:       status,
		AmountMinor:  amountMinor,
		Currency:     currency,
		Metadata:     md,
	}
	f.intents[ref] = in
	return copyIntent(in), nil
}

// RetrieveIntent returns the recorded intent for ref.
func (f *Fake) RetrieveIntent(_ context.Context, ref string) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	in, ok := f.intents[ref]
	if !ok {
		return nil, fmt.Errorf("no such intent %q", ref)
	}
	return copyIntent(in), nil
}

// Succeed marks the intent as succeeded, simulating the client
// completing the charge out of band.
func (f *Fake) Succeed(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in, ok := f.intents[ref]; ok {
		in.Status = StatusSucceeded
	}
}

// Created returns how many intents have been created so far.
func (f *Fake) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.intents)
}

func copyIntent(in *Intent) *Intent {
	out := *in
	out.Metadata = make(map[string]string, len(in.Metadata))
	for k, v := range in.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
