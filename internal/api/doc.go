// Package api hosts the HTTP server, middleware, and handlers. Notable routes:
//   - POST /classify (and POST /v1/classify) tags the page at a URL.
//   - GET /v1/tags lists the taxonomy labels in order.
//   - GET /healthz / readyz for Kubernetes liveness and readiness checks.
//   - GET /metrics for Prometheus scraping.
package api
