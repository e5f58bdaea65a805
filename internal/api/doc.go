// Package api adapts HTTP requests to the application services. Handlers
// decode and validate input, call one service method and map the result or
// error to a JSON response. Routing lives in cmd/server.
package api
