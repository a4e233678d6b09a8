// Package httputil provides the retry policy shared by the index and
// forge clients.
//
// Transient failures (connection errors, 5xx responses) are marked by
// wrapping them in [RetryableError]; [Retry] only repeats an operation for
// errors carrying that mark and gives up immediately on anything else, so a
// 404 from the package index is reported on the first attempt.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.Get(ctx, url, &doc)
//	})
//
// Defaults: 3 attempts, 1 second initial delay doubling after each failure,
// capped at 10 seconds.
package httputil
