// Package driving provides interfaces for application entry points
// (primary/inbound ports) consumed by the CLI and TUI.
package driving
