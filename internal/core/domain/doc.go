// Package domain contains the core business entities for zcite:
// libraries, documents, text chunks, search results and settings.
// It has no dependencies on adapters or infrastructure.
package domain
