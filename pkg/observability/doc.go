/*
Package observability turns planner lifecycle events into Prometheus metrics
and structured log records.

Metrics registers its collectors on a private registry so several runs in one
process never collide; Push ships them to a Pushgateway at the end of a run.
*/
package observability
