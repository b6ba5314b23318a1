// Package bamprovider gives concurrent, read-only, region-based access to
// aligned reads stored in a coordinate-sorted, indexed BAM file.
//
// The Provider is shared by all workers of a run; each NewIterator call gets
// its own file handle, recycled through a free list once the iterator is
// closed.
package bamprovider
