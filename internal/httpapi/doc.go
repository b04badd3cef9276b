// Package httpapi maps HTTP requests onto blogauth engine operations.
//
// Every engine failure carries a blogauth.Kind, which decides the status
// code; the response body carries only the stable error code. Causes of
// server errors are logged, never returned.
package httpapi
