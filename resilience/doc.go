// Package resilience wraps startup-time library loading with retry. It is
// deliberately small: unlike a request-serving RPC client, a LibraryLoader
// runs once at boot, so there is no circuit breaker or per-call metrics here,
// only bounded exponential-backoff retry around a single LoadError-prone
// operation.
package resilience
