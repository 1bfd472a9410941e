// Package api hosts the HTTP server, middleware, and REST handlers. Routes:
//   - POST /v1/clients/{client_id}/imports uploads a log file (multipart
//     field "file", optional "kind") and queues an import job.
//   - GET /v1/clients/{client_id}/imports lists a client's jobs.
//   - GET /v1/imports/{job_id} returns the persisted job.
//   - GET and DELETE /v1/imports/{job_id}/progress read or acknowledge the
//     live progress entry.
//   - GET /v1/bots lists the crawler families the classifier recognizes.
//   - GET /healthz, /readyz and /metrics for probes and Prometheus scraping.
package api
