// Package pagination walks MWS list operations that paginate with NextToken.
//
// MWS returns at most one page per call plus an opaque NextToken naming the
// following page, so pages can only be fetched one after another. Every page
// is a separate throttled call and may wait for a token before it is sent.
//
// Example usage:
//
//	walker := pagination.NewWalker[orders.Order](pack.OrderPager(from, to, nil), pagination.DefaultConfig())
//	orders, err := walker.FetchAll(ctx)
//
// The walker:
//   - Fetches the first page, then follows NextToken until it is empty
//   - Bounds each page fetch with a timeout (including throttle waits)
//   - Stops at MaxPages and reports ErrPageLimit with the pages fetched so far
//   - Lets the page callback end the walk early with ErrStop
package pagination
