// Package dispatch fans notification frames out to live stream channels.
//
// A notification is encoded once per dispatch as an event-stream data frame
// ("data: <json>\n\n") using notifications.NewView, then written to every
// channel the registry holds for the target recipient. Writes are
// fire-and-forget: there is no retry and no queue for offline recipients.
// A failed write unregisters that one channel and delivery continues with
// the rest.
//
//	d := dispatch.New(reg, dispatch.WithLogger(log), dispatch.WithMetrics(m))
//	ok := d.SendToUser(ctx, recipientID, n)
//	reached := d.Broadcast(ctx, announcement)
//
// Dispatcher implements notifications.Deliverer.
package dispatch
