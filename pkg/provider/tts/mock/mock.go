// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingomirror/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Req is the request passed to Synthesize.
	Req tts.SpeechRequest
}

// Provider is a mock implementation of tts.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject failures.
type Provider struct {
	mu sync.Mutex

	// Clip is returned by Synthesize when Err is nil.
	Clip []byte

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// Errs, if non-empty, is consumed one element per Synthesize call before
	// falling back to Err. A nil element means that call succeeds. Useful for
	// scripting a markup failure followed by a plain-text success.
	Errs []error

	// Voices is returned by ListVoices.
	Voices []tts.VoiceProfile

	// ListVoicesErr, if non-nil, is returned as the error from ListVoices.
	ListVoicesErr error

	// SynthesizeCalls records every invocation of Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

// Compile-time assertion that Provider satisfies tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, req tts.SpeechRequest) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Req: req})

	if len(p.Errs) > 0 {
		err := p.Errs[0]
		p.Errs = p.Errs[1:]
		if err != nil {
			return nil, err
		}
		return p.Clip, nil
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Clip, nil
}

// ListVoices implements tts.Provider.
func (p *Provider) ListVoices(_ context.Context) ([]tts.VoiceProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ListVoicesErr != nil {
		return nil, p.ListVoicesErr
	}
	return p.Voices, nil
}
