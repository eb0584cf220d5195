// Package retry provides backoff and retry logic for transient failures
// in network operations. Retries are off by default and only run when the
// retry policy in the configuration enables them.
//
// Basic usage:
//
//	err := retry.Do(func() error {
//		return client.DownloadImage(url)
//	}, retry.ConfigFromPolicy(cfg, log))
//
// Auth, token decode, parsing and not-found errors are never retried;
// network errors, rate limits and 5xx responses are.
package retry
