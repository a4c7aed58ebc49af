// Package csfloat is a small client for the CSFloat listings endpoint.
//
// Fetch never returns an error. A failed request (non-200 status, transport
// error, malformed body) yields a degraded, empty FetchResult that the caller
// can count and log; a successful request with no listings is StatusOK with
// an empty slice.
package csfloat
