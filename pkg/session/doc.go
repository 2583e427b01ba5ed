// Package session holds the backend session state and the stores used to
// cache session-scoped values such as the authentication method and
// remembered credentials.
//
// # Session State
//
// State is the single authoritative value describing whether a backend
// session exists. It is the rendezvous point between the auth gateway, which
// starts sessions, and the push channel, which confirms and loses them:
//
//	state := session.NewState(100 * time.Millisecond)
//	sub := state.Subscribe()
//	defer sub.Close()
//
//	state.Set(session.CreatingSession)
//	for v := range sub.C() {
//	    fmt.Println(v)
//	}
//
// Setting the current value again is a no-op. Deliveries are debounced: a
// flap that returns to the last delivered value within the window publishes
// nothing.
//
// # Stores
//
// The Store interface defines the contract for cached values:
//
//	store := session.NewMemoryStore()          // lives as long as the process
//	store, err := session.NewBoltStore(path)   // survives restarts
//
// Memory stores back session-scoped caches. A bolt store is only used for
// credentials the user explicitly asked to remember.
package session
