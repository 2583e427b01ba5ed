// Package broadcast provides in-process publish/subscribe primitives.
//
// Two flavors are offered:
//
//   - Cell holds a current value. New subscribers immediately receive the
//     current value, then every later value in publish order (replay of 1).
//   - Signal holds nothing. Subscribers only receive values emitted after
//     they subscribed.
//
// Delivery never blocks the publisher: every subscription owns an unbounded
// queue drained by its own goroutine into the channel returned by C. Values
// are delivered to each subscriber in exactly the order they were published,
// and a publish is enqueued to every subscriber before the next publish
// starts.
//
//	state := broadcast.NewCell("idle")
//	sub := state.Subscribe()
//	defer sub.Close()
//
//	state.Set("busy")
//	fmt.Println(<-sub.C()) // idle
//	fmt.Println(<-sub.C()) // busy
package broadcast
