// Package api handles incoming HTTP requests, request validation and
// response formatting. It acts as an adapter between HTTP clients and the
// user and task services, translating service errors into status codes.
package api
