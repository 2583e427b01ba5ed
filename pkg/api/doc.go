// Package api is the request layer between the console and the backend.
//
// Every request carries the gateway's auth headers. Responses the console
// must react to are routed before the caller sees them:
//
//   - 427 raises a JMX auth failure on the target link
//   - 502 raises an SSL failure on the target link
//   - any other failure becomes a danger notification
//
// Idempotent requests are retried by go-retryablehttp on transport errors
// and 5xx answers other than 502. Nothing else is retried.
package api
