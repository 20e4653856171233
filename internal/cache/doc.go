// Package cache provides byte-oriented LRU caching for chunk blobs.
//
// LRUBlockCache is a single-mutex LRU bounded by a byte capacity.
// ShardedLRUBlockCache spreads keys over 16 LRU shards by name hash to cut
// lock contention between concurrent chunk readers.
//
// Both integrate with resource.Controller: every cached byte is reserved from
// the global memory budget and released on eviction. When the budget is
// exhausted new values are simply not cached.
package cache
