// Package mapping turns a feed configuration plus a submitted entry into the
// subscriber record sent to Drip.
//
// Every step is a hard gate: a missing or invalid email aborts with a
// classified *domain.Error and nothing is substituted. Optional attributes
// that are unmapped or blank are simply left out of the record.
package mapping
