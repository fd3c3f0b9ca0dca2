// Package messaging publishes events to a broker without tying use-case code
// to a specific one. Kafka, NATS, NSQ and Google Pub/Sub are supported, and
// the "none" driver discards everything for deployments without a broker.
package messaging
