// Package storage is the filesystem side of a download: it reserves
// collision-free destination files, writes them atomically and moves
// rejected files aside for manual review.
package storage
