// Package telemetry exports resolver and activation metrics as OpenTelemetry
// instruments. It is a scaled-down version of the teacher's telemetry
// package: one provider, one meter, no circuit breaker, no cardinality
// control, no PII redaction — constraintd's core has nothing resembling
// per-request tenant labels, so that machinery has no home here.
package telemetry
