// Package httpserver runs the notifier's HTTP listener with graceful
// shutdown.
//
// Notification streams are long-lived responses, so the server differs from
// a plain request/response server in two ways: the write timeout is off by
// default, and every request context derives from a base context that is
// cancelled when shutdown starts. Open streams therefore observe shutdown,
// unregister their channel and return, and http.Server.Shutdown does not
// wait for them until its deadline.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
package httpserver
