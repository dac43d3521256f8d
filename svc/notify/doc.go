// Package notify orchestrates bulk sends: validate the request, resolve
// recipients, persist one row per recipient and push each row to the
// recipient's open streams. The HTTP API and the event intake both go
// through Service.Send.
package notify
