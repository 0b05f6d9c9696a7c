package cmis

import (
	"bytes"
	"errors"
	"io"
	"time"
)

// DefaultMimeType is used when a content stream does not declare one.
const DefaultMimeType = "application/octet-stream"

const readChunkSize = 32 * 1024

// ContentStream is an immutable byte buffer with its metadata. Views
// created by Clip share the underlying buffer.
type ContentStream struct {
	FileName     string
	MimeType     string
	LastModified time.Time
	data         []byte
}

// NewContentStream wraps data. The caller must not modify data afterwards.
func NewContentStream(data []byte, fileName, mimeType string) *ContentStream {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return &ContentStream{
		FileName:     fileName,
		MimeType:     mimeType,
		LastModified: time.Now().UTC(),
		data:         data,
	}
}

// ReadContentStream reads r into a new content stream. Reading stops with
// a StorageLimitExceeded error as soon as more than maxBytes have been
// read; maxBytes <= 0 disables the limit.
func ReadContentStream(r io.Reader, fileName, mimeType string, maxBytes int64) (*ContentStream, error) {
	limit := int64(-1)
	if maxBytes > 0 {
		limit = maxBytes
	}
	data, err := readBounded(r, limit, maxBytes)
	if err != nil {
		return nil, err
	}
	return NewContentStream(data, fileName, mimeType), nil
}

// readBounded reads r until EOF, failing once more than limit bytes have
// been read. A negative limit reads everything. maxBytes is reported in
// the error.
func readBounded(r io.Reader, limit, maxBytes int64) ([]byte, error) {
	if r == nil {
		return nil, Errorf(KindInvalidArgument, "content stream reader is nil")
	}
	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if limit >= 0 && int64(buf.Len()+n) > limit {
				return nil, Errorf(KindStorageLimitExceeded, "content stream exceeds the limit of %d bytes", maxBytes)
			}
			buf.Write(chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Errorf(KindRuntime, "read content stream: %v", err)
		}
	}
	return buf.Bytes(), nil
}

// Length returns the number of bytes in the stream.
func (c *ContentStream) Length() int64 {
	if c == nil {
		return 0
	}
	return int64(len(c.data))
}

// Bytes returns a copy of the stream's bytes.
func (c *ContentStream) Bytes() []byte {
	return append([]byte(nil), c.data...)
}

// Reader returns a new reader positioned at the start of the stream.
func (c *ContentStream) Reader() io.Reader {
	return bytes.NewReader(c.data)
}

// Clip returns a view of length bytes starting at offset. A negative
// length selects everything up to the end. The view shares the buffer.
func (c *ContentStream) Clip(offset, length int64) (*ContentStream, error) {
	size := int64(len(c.data))
	if offset < 0 || offset > size {
		return nil, Errorf(KindInvalidArgument, "offset %d outside content of length %d", offset, size)
	}
	end := size
	if length >= 0 && length < size-offset {
		end = offset + length
	}
	view := *c
	view.data = c.data[offset:end:end]
	return &view, nil
}

// Append returns a new stream holding c's bytes followed by r's. The
// combined length is bounded by maxBytes as in ReadContentStream.
func (c *ContentStream) Append(r io.Reader, maxBytes int64) (*ContentStream, error) {
	limit := int64(-1)
	if maxBytes > 0 {
		limit = max(maxBytes-c.Length(), 0)
	}
	tail, err := readBounded(r, limit, maxBytes)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(c.data)+len(tail))
	data = append(data, c.data...)
	data = append(data, tail...)
	return NewContentStream(data, c.FileName, c.MimeType), nil
}
