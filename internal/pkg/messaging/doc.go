// Package messaging provides a broker-agnostic API for publishing and
// consuming messages.
//
// Business code depends on Publisher and Consumer only. The concrete
// broker (NATS, Kafka, or the in-process Memory driver used by tests and
// local runs) is selected by name through NewFromDriver.
package messaging
