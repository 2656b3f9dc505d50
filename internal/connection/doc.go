// Package connection verifies Drip credentials and remembers the outcome.
//
// Three layers share one live check:
//
//   - Validator caches a ConnectionStatus per credential pair with separate
//     success and failure TTLs, in memory or in Redis.
//   - Initializer memoizes, per process, whether the saved credentials work.
//     Its state is Unchecked, Valid or Invalid until Reset.
//   - FeedbackService answers the settings page tick/cross per field and
//     returns FeedbackNone while there is not enough input to test.
//
// All three drop their state when the credential store reports a change.
package connection
