// Package httputil provides shared HTTP response/request helpers for the
// API handlers.
//
// Handlers use these instead of raw http.ResponseWriter calls so every
// endpoint shares the same JSON envelope and error logging.
package httputil
