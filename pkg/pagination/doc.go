// Package pagination drains offset-paginated catalog collections.
//
// The gateway exposes at most PageSizeCeiling records per request and
// reports the collection size in every response envelope. The fetcher
// walks the collection sequentially: each request's offset is derived from
// the previous response's count, and the first response's total becomes
// the termination bound.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(catalogClient, pagination.DefaultConfig())
//	records, err := fetcher.FetchAll(ctx, "/v1/public/characters")
//
// The fetcher:
//   - Issues one signed GET per page via the transport client
//   - Adopts the first page's total as the authoritative bound
//   - Concatenates results in page order, untouched
//   - Fails fast: any transport or envelope error aborts the drain and
//     discards everything accumulated so far
//
// Pages are fetched strictly sequentially. Each page's offset depends on
// the previous page's count, so parallelizing would require a separate
// bound-discovery step.
package pagination
