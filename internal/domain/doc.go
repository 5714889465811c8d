// Package domain defines the core business entities of the task tracker
// (users and tasks), the task lifecycle graph, list filters, and the errors
// raised when these rules are violated. It has no knowledge of storage or
// transport.
package domain
