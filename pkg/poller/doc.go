// Package poller reconciles a client's notification view when the stream
// misses something. Delivery over the stream is at most once, so a client
// also polls the list endpoint on a slowly escalating interval (5s, 10s,
// then 15s). Polling pauses while the view is not focused, and Reset drops
// back to the fastest step after user activity or a stream reconnect.
//
//	p := poller.New(func(ctx context.Context) error {
//		return view.Refresh(ctx)
//	})
//	go p.Run(ctx)
//	...
//	p.Pause()  // window lost focus
//	p.Resume() // back again, fast polling
package poller
