// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding

import (
	"context"

	"golang.org/x/time/rate"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// Throttled wraps a TextEncoder with a token-bucket rate limit shared by
// every caller.
type Throttled struct {
	TextEncoder
	limiter *rate.Limiter
}

// Throttle limits enc to rps requests per second with the given burst. A
// non-positive rps returns enc unchanged.
func Throttle(enc TextEncoder, rps float64, burst int) TextEncoder {
	if rps <= 0 {
		return enc
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{TextEncoder: enc, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) EncodeText(ctx context.Context, text string, normalize bool) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeEmbeddingUpstreamFailure, "waiting for embedding rate limit")
	}
	return t.TextEncoder.EncodeText(ctx, text, normalize)
}
