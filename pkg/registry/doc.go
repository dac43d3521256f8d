// Package registry tracks live delivery channels per notification recipient.
//
// A recipient may hold any number of channels at once (several tabs, a
// phone and a laptop). The registry is the only shared mutable state of the
// real-time path: stream handlers register and unregister channels as
// clients connect and disconnect, and the dispatcher reads snapshots and
// unregisters channels whose writes fail.
//
// State lives only in memory and is lost on restart; clients reconnect and
// re-fetch what they missed.
//
//	reg := registry.New()
//	conn := reg.Register(recipientID, ch)
//	defer reg.Unregister(recipientID, ch)
package registry
