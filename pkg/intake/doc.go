// Package intake consumes notification requests published to Kafka by other
// platform modules (job postings, application updates, approvals).
//
// Each message value is a JSON send request, the same shape the bulk HTTP
// endpoint accepts. Messages run through the notify service one at a time.
// The offset is committed whatever the outcome: malformed, rejected and
// failed messages are logged and counted, never redelivered.
package intake
