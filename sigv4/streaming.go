package sigv4

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// chunk framing is hex(len) + ";chunk-signature=" + 64 hex chars + CRLF, data, CRLF
const chunkSignatureLen = int64(len(";chunk-signature=")) + 64 + 2 + 2

// EncodedLength is the Content-Length of an aws-chunked body carrying decoded bytes.
func EncodedLength(decoded int64, chunkSize int) int64 {
	size := int64(chunkSize)
	full := decoded / size
	rem := decoded % size

	length := full * (int64(len(strconv.FormatInt(size, 16))) + chunkSignatureLen + size)
	if rem > 0 {
		length += int64(len(strconv.FormatInt(rem, 16))) + chunkSignatureLen + rem
	}
	// terminating zero length chunk
	return length + 1 + chunkSignatureLen
}

// ChunkStringToSign links a chunk to the previous signature, the first chunk
// is linked to the request signature.
func ChunkStringToSign(t time.Time, scope CredentialScope, previousSignature string, chunk []byte) string {
	return ChunkAlgorithm + "\n" +
		t.UTC().Format(TimeFormat) + "\n" +
		scope.String() + "\n" +
		previousSignature + "\n" +
		EmptyStringSHA256 + "\n" +
		hexSHA256(chunk)
}

type chunkedReader struct {
	src        io.Reader
	signingKey []byte
	scope      CredentialScope
	t          time.Time
	prevSig    string
	chunk      []byte
	buf        bytes.Buffer
	done       bool
}

func newChunkedReader(src io.Reader, signingKey []byte, scope CredentialScope, t time.Time, seed string, chunkSize int) *chunkedReader {
	return &chunkedReader{
		src:        src,
		signingKey: signingKey,
		scope:      scope,
		t:          t,
		prevSig:    seed,
		chunk:      make([]byte, chunkSize),
	}
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	for r.buf.Len() == 0 {
		if r.done {
			return 0, io.EOF
		}
		if err := r.next(); err != nil {
			return 0, err
		}
	}
	return r.buf.Read(p)
}

func (r *chunkedReader) next() error {
	n, err := io.ReadFull(r.src, r.chunk)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("error reading chunk: %w", err)
	}
	data := r.chunk[:n]
	signature := ComputeSignature(r.signingKey, ChunkStringToSign(r.t, r.scope, r.prevSig, data))
	r.prevSig = signature

	fmt.Fprintf(&r.buf, "%x;chunk-signature=%s\r\n", n, signature)
	r.buf.Write(data)
	r.buf.WriteString("\r\n")
	if n == 0 {
		r.done = true
	}
	return nil
}

func (r *chunkedReader) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
