// Package async provides generic helpers for running work concurrently and
// collecting the results.
//
// Async starts a function in its own goroutine and returns a Future that
// Await blocks on. WaitAll collects every result in input order and joins
// the errors. Map runs a function over a slice with at most limit
// goroutines alive at once.
//
//	futures := make([]*async.Future[bool], len(ids))
//	for i, id := range ids {
//	    futures[i] = async.Async(ctx, id, send)
//	}
//	delivered, err := async.WaitAll(futures...)
//
// A context that is already done when a function would start completes its
// Future with ctx.Err() without calling the function.
package async
