// Package eventbus propagates lock acquisition and release events so
// sibling orchestrator processes and dashboards can observe lock churn.
// The bus is strictly observational: the coordinator publishes after the
// fact and never depends on delivery. In-memory, NATS and Kafka backends
// are provided, plus a circuit breaker decorator for flaky brokers.
package eventbus
