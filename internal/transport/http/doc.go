// Package http contains the chi HTTP handlers for the report API.
//
// Handlers translate between HTTP and the services layer: they parse and
// validate request parameters, call the service, and render JSON responses.
// Failures are reported as RFC 7807 problem documents through the shared
// error handler.
package http
