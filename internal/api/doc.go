// Package api exposes the engine over HTTP for an external canvas.
//
// Every endpoint answers JSON. Errors are reported as {"error": "..."}
// with 400 for malformed requests, 404 for unknown nodes or slots, 422 for
// requests that are well-formed but cannot be applied and 500 otherwise.
package api
