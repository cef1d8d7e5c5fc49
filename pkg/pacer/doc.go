// Package pacer spaces out downloads with a randomized delay so that the
// request pattern does not look machine-regular. The delay is a whole
// number of seconds drawn uniformly from the configured bounds.
package pacer
