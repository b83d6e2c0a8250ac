// Package file implements a TOML file-backed configuration store.
package file
