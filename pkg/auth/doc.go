// Package auth implements the backend authentication gateway.
//
// A Gateway learns which authentication method the backend requires,
// exchanges credentials, holds the accepted token and builds the headers
// every outbound request carries. A successful credential check moves the
// session to CreatingSession, which is what prompts the push channel to
// connect:
//
//	gw := auth.New(backendURL, state,
//	    auth.WithNavigator(nav),
//	    auth.WithTargetLink(link),
//	)
//	method, _ := gw.ProbeMethod(ctx)
//	if gw.CheckAuth(ctx, "user:pass", method, false) {
//	    // session is CreatingSession
//	}
//
// # Method signal
//
// MethodLearned is closed the first time a method is observed. CheckAuth
// closes it even when the check fails, so callers waiting on it never
// deadlock:
//
//	<-gw.MethodLearned()
//	fmt.Println(gw.Method())
//
// # Token custody
//
// The accepted token is kept in a memguard enclave and is never logged.
// It is written to the credential store only when the caller asked to be
// remembered.
package auth
