// Package services contains the application's core business logic,
// implementing the driving ports over injected driven ports.
package services
