// Package notifications owns the notification lifecycle: one persisted row
// per recipient that is created unread, transitions to read once, and is
// eventually deleted.
//
// # Architecture
//
//   - Storage: persistence of rows (MemoryStorage, PGStorage)
//   - Manager: lifecycle transitions with ownership checks
//   - Deliverer: live delivery contract implemented by the dispatch package
//
// Manager mutations are pure persistence transitions. None of them push
// anything to connected clients; a caller that wants live delivery hands
// the created rows to a Deliverer itself.
//
// # Ownership
//
// Every row has exactly one recipient. The recipient may read, mark read
// and delete it. An actor whose role holds the "notifications.moderate"
// permission may view, mark read and delete any row. MarkManyRead is
// owner-scoped: ids that belong to someone else are skipped silently.
//
// # Basic Usage
//
//	storage := notifications.NewMemoryStorage()
//	manager := notifications.NewManager(storage,
//	    notifications.WithAuthorizer(authz),
//	    notifications.WithLogger(log),
//	)
//
//	n, err := manager.Create(ctx, doctorID, notifications.Draft{
//	    Title: "Application received",
//	    Body:  "St. Mary's reviewed your application",
//	    Type:  notifications.TypeSuccess,
//	})
//
//	// Reconcile path
//	unread, err := manager.List(ctx, doctorID, notifications.ListOptions{OnlyUnread: true})
//	count, err := manager.CountUnread(ctx, doctorID)
//
// At the HTTP boundary rows are serialized exclusively through NewView.
package notifications
