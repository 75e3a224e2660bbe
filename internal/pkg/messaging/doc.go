// Package messaging publishes events to a message broker.
//
// Callers depend on Publisher only. The concrete broker (NATS, NSQ, Kafka,
// Google Pub/Sub) is picked at startup through NewFromDriver, and the
// "none" driver discards everything so the service runs without a broker.
package messaging
