// Package retry runs operations again when they fail with a transient
// error, waiting according to a backoff strategy between attempts.
//
// The HTTP client uses TransportConfig, which mirrors the classic
// "total=5, backoff_factor=0.5" policy: five attempts in all, sleeping
// 0.5s, 1s, 2s and 4s in between. Only errors typed as network, rate
// limit or server errors are retried; anything else is returned as-is.
// When every attempt fails, Do returns an *ExhaustedError wrapping the
// last failure.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return send(ctx)
//	}, retry.TransportConfig(5, 0.5, log))
package retry
