// Package errors provides structured, categorized errors for the console core.
//
// Every failure the session and notification subsystem can observe falls into
// one of four recovery classes, and each class owns a range of error codes:
//
//   - auth (E1xx): credentials rejected, session expired, logout failures.
//     Recovered by returning to NoSession and prompting a new login.
//   - target (E2xx): per-target JMX authentication (HTTP 427) and SSL trust
//     (HTTP 502) failures. Recovered by re-prompting target credentials
//     without tearing down the backend session.
//   - channel (E3xx): notification endpoint lookup and socket failures.
//     Recovered automatically by the fixed-interval reconnect tick.
//   - application (E4xx): any other failed request. Surfaced as a danger
//     notification, never retried automatically.
//
// Configuration problems use E5xx.
//
// # Usage
//
//	err := errors.New("E200").
//	    WithStatus(427).
//	    WithDetail("target service:jmx:rmi:///jndi/rmi://app:9091/jmxrmi")
//
//	if errors.Is(err, "E200") {
//	    // prompt for JMX credentials
//	}
//
//	fmt.Println(err.Format())
package errors
