// Package fs abstracts the file operations of the local blob store so tests
// can inject I/O failures.
//
//   - [LocalFS] is the os backed implementation, exposed as [Default].
//   - [FaultyFS] wraps a FileSystem and fails writes, syncs, closes or
//     renames of files matching a pattern.
//
// Operations take no context.Context; the blob store checks its context
// between them.
package fs
