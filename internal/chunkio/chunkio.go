// Package chunkio provides random-access reads of exactly the byte range
// belonging to a chunk index, without holding the source file open across
// calls.
package chunkio

import (
	"fmt"
	"io"
	"os"

	"github.com/resumable/uploadkit/internal/uploaderr"
)

// TotalChunks returns ceil(totalSize / chunkSize). totalSize=0 yields 1 chunk
// (an empty file still occupies a single, zero-length chunk slot).
func TotalChunks(totalSize, chunkSize int64) int64 {
	if totalSize <= 0 {
		return 1
	}

	return (totalSize + chunkSize - 1) / chunkSize
}

// Range returns the inclusive [start, end] byte range and size for chunk
// index under the given chunkSize/totalSize. The last chunk is short.
func Range(index, chunkSize, totalSize int64) (start, end, size int64) {
	start = index * chunkSize
	end = start + chunkSize - 1

	if end > totalSize-1 {
		end = totalSize - 1
	}

	size = end - start + 1

	return start, end, size
}

// Read opens path, seeks to index*chunkSize, and reads exactly
// min(chunkSize, totalSize-start) bytes. The file handle is scoped to this
// call via defer, so it is released on every exit path including read
// errors. index >= total chunk count is an OutOfRange error.
func Read(path string, index, chunkSize, totalSize int64) ([]byte, error) {
	total := TotalChunks(totalSize, chunkSize)
	if index < 0 || index >= total {
		return nil, uploaderr.New(uploaderr.CodeOutOfRange, false,
			fmt.Sprintf("chunk index %d out of range [0,%d)", index, total), nil)
	}

	start, _, size := Range(index, chunkSize, totalSize)

	f, err := os.Open(path)
	if err != nil {
		return nil, uploaderr.New(uploaderr.CodeIoError, false,
			fmt.Sprintf("opening %s for chunk read: %v", path, err), nil)
	}
	defer f.Close()

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, uploaderr.New(uploaderr.CodeIoError, false,
			fmt.Sprintf("seeking %s to %d: %v", path, start, err), nil)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, uploaderr.New(uploaderr.CodeIoError, false,
			fmt.Sprintf("reading chunk %d from %s: %v", index, path, err), nil)
	}

	return buf, nil
}
