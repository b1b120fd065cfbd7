// Package signal implements the event-based signalling interface between the
// broker core and externally linked UI surfaces (wallet pages, approval
// popups). Events are delivered asynchronously as JSON envelopes.
package signal
