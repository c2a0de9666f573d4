// Package policy provides delivery failure classification for the courier
// event queue.
//
// # Retry Classification
//
// [Classifier] decides, for a terminal HTTP status code, whether the failed
// batch should remain queued for a future drain or be permanently dropped.
// The decision order is fixed:
//
//  1. A successful (2xx) status is never retried.
//  2. If retries are globally disabled, never retry.
//  3. If the status is on the explicit retry list, always retry. The
//     explicit retry list wins even when the status also appears on the
//     don't-retry list.
//  4. Otherwise retry, unless the status is on the don't-retry list.
//
// The don't-retry list always includes the standard permanent-failure
// statuses 400, 401, 403, 410 and 422 in addition to any caller-supplied
// codes.
//
// Example:
//
//	classifier := policy.NewClassifier(
//	    policy.WithRetryStatusCodes(429),
//	    policy.WithDontRetryStatusCodes(404),
//	)
//	classifier.ShouldRetry(500) // true
//	classifier.ShouldRetry(404) // false
//	classifier.ShouldRetry(429) // true, explicit retry wins
package policy
