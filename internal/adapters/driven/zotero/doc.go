// Package zotero implements the reference-library port against the
// Zotero Web API v3.
//
// The adapter wraps item listing, attachment discovery, cached OCR
// artifact round-tripping, and PDF download. All requests go through a
// shared rate limiter that honours the API's Backoff and Retry-After
// headers.
package zotero
