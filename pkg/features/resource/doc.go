// Package resource layers race-safe asynchronous loading on top of the
// attune reactive graph.
//
// A Resource drives a fetcher function and exposes its progress through
// reactive signals, so memos and effects can depend on loading state the
// same way they depend on plain values:
//
//	user := resource.New(rt, func(ctx context.Context, info resource.FetchInfo[User]) (User, error) {
//	    return client.FetchUser(ctx, id)
//	})
//
//	attune.CreateEffect(rt, func() attune.Cleanup {
//	    render(resource.Match(user,
//	        resource.OnLoading[User](func() string { return "spinner" }),
//	        resource.OnErrored[User](func(err error) string { return err.Error() }),
//	        resource.OnReady[User](func(u User) string { return u.Name }),
//	    ))
//	    return nil
//	})
//
// Overlapping fetches are resolved by generation: starting a new fetch
// supersedes the one in flight, and a superseded fetch's result is
// discarded when it eventually lands, no matter how the goroutines
// interleave. Cancellation is cooperative; a superseded fetcher gets its
// context canceled but is not forcibly stopped.
//
// Fetch errors are always caught, including fetcher panics, and surface
// only through Err and the Errored state. They never propagate into the
// reactive graph.
package resource
