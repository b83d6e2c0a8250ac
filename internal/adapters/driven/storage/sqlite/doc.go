// Package sqlite provides a persistent vector store backed by SQLite.
//
// Embeddings are stored as little-endian float32 blobs next to the chunk
// text, and similarity search is a brute-force cosine scan over candidate
// rows. That keeps the store dependency-free beyond the pure-Go SQLite
// driver and is fast enough for personal-library collection sizes.
package sqlite
