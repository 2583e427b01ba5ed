// Package notify provides the process-wide notification store.
//
// Every component that wants to tell the user something (a recording was
// created, the push channel dropped, a request failed) calls one of the
// variant helpers:
//
//	store.Success("Recording Created", "foo created in target: bar", "ActiveRecordingCreated", false)
//	store.Danger("Request failed", err, "", false)
//
// The store keeps notifications newest first and never evicts them on its
// own. Read and hidden flags change in place without reordering. Views
// subscribe to the full log:
//
//	sub := store.Subscribe()
//	defer sub.Close()
//	for log := range sub.C() {
//	    render(log)
//	}
//
// # Partition
//
// Every notification is exactly one of:
//
//   - a problem: variant warning or danger
//   - a status: category connection-activity or target-discovery, not a problem
//   - an action: everything else
//
// # Drawer
//
// Opening the drawer hides every held notification in one publish. New
// notifications default to hidden while the drawer is open so they do not
// pop up as toasts.
package notify
