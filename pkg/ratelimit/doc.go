// Package ratelimit throttles outgoing requests.
//
// A SlidingWindow limiter caps requests per window and is shared by every
// request the web client sends. Cooldown provides the randomized pause the
// downloader takes after a successful fetch.
//
//	limiter := ratelimit.New(cfg.RateLimit.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//
//	pause := ratelimit.Cooldown{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}
//	_ = pause.Pause(ctx)
package ratelimit
