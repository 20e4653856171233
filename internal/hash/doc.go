// Package hash provides the CRC32-Castagnoli checksum used to verify blob
// uploads. Go's crc32 package uses hardware instructions when available.
package hash
