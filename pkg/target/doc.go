// Package target carries per-target connection signals that are independent
// of the backend session.
//
// The request layer raises AuthFailure when the backend answers 427 (the
// selected JVM wants JMX credentials) and SSLFailure on 502 (the backend does
// not trust the JVM's certificate). Forms subscribe to those signals to show a
// retry affordance, then call SetAuthRetry once the user has supplied
// credentials:
//
//	sub := link.AuthFailure()
//	defer sub.Close()
//	for f := range sub.C() {
//	    user, pass := prompt(f.Target)
//	    link.StoreCredential(f.Target, user, pass)
//	    link.SetAuthRetry()
//	}
//
// The signals do not replay: a subscriber only sees failures raised after it
// subscribed.
package target
