// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/grailbio/base/errors"
)

// Each chunk is stored as a single record:
//
//	method   byte      compression method used for the payload
//	count    uvarint   number of elements in the chunk
//	rawLen   uvarint   length of the serialized chunk
//	size     uvarint   length of the (possibly compressed) payload
//	payload  [size]byte
//	crc      uint32    little-endian CRC-32C of header and payload
//
// Chunks are never empty: a count of zero is invalid.
const maxHeaderSize = 1 + 3*binary.MaxVarintLen64

// maxRecordSize bounds the lengths accepted by the decoder, so that
// a damaged header cannot trigger an arbitrarily large allocation.
const maxRecordSize = 1 << 31

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// An Encoder writes chunks as framed records to an underlying
// io.Writer. Scratch buffers are reused between chunks, but no
// serialization or compression state is: every record may be
// decoded on its own.
type Encoder[T any] struct {
	w           io.Writer
	codec       Codec[T]
	compression Compression

	raw    bytes.Buffer
	packed []byte
	hdr    [maxHeaderSize]byte
}

// NewEncoder returns an Encoder that writes chunks encoded with
// codec and compressed with compression to w.
func NewEncoder[T any](w io.Writer, codec Codec[T], compression Compression) *Encoder[T] {
	return &Encoder[T]{w: w, codec: codec, compression: compression}
}

// Encode writes chunk as a single record. It returns the size of the
// serialized chunk and the number of bytes written to the underlying
// writer.
func (e *Encoder[T]) Encode(chunk []T) (raw, written int, err error) {
	if len(chunk) == 0 {
		return 0, 0, errors.E(errors.Invalid, "chunkio: empty chunk")
	}
	e.raw.Reset()
	if err = e.codec.Encode(&e.raw, chunk); err != nil {
		return 0, 0, err
	}
	method, payload, err := e.compression.compress(e.packed, e.raw.Bytes())
	if err != nil {
		return 0, 0, err
	}
	if method != None {
		e.packed = payload
	}
	hdr := e.hdr[:0]
	hdr = append(hdr, byte(method))
	hdr = binary.AppendUvarint(hdr, uint64(len(chunk)))
	hdr = binary.AppendUvarint(hdr, uint64(e.raw.Len()))
	hdr = binary.AppendUvarint(hdr, uint64(len(payload)))
	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], crc32.Update(crc32.Checksum(hdr, crcTable), crcTable, payload))
	for _, p := range [][]byte{hdr, payload, sum[:]} {
		n, err := e.w.Write(p)
		written += n
		if err != nil {
			return e.raw.Len(), written, err
		}
	}
	return e.raw.Len(), written, nil
}

// A Decoder reads framed records written by an Encoder.
type Decoder[T any] struct {
	r     readByteReader
	codec Codec[T]

	raw, packed []byte
	hdr         headerReader
}

// headerReader retains the bytes of a record header as they are
// read, so that they may be checksummed.
type headerReader struct {
	r   io.ByteReader
	buf []byte
}

func (h *headerReader) ReadByte() (byte, error) {
	b, err := h.r.ReadByte()
	if err == nil {
		h.buf = append(h.buf, b)
	}
	return b, err
}

// NewDecoder returns a Decoder that reads records from r. If r does
// not implement io.ByteReader, it is buffered.
func NewDecoder[T any](r io.Reader, codec Codec[T]) *Decoder[T] {
	d := &Decoder[T]{r: byteReader(r), codec: codec}
	d.hdr.r = d.r
	return d
}

// Decode reads the next record and returns its chunk. Decode returns
// EOF if the stream ends cleanly at a record boundary; a stream that
// ends inside a record, or a record that fails its checksum, returns
// an error of kind errors.Integrity.
func (d *Decoder[T]) Decode() ([]T, error) {
	b, err := d.r.ReadByte()
	if err == io.EOF {
		return nil, EOF
	} else if err != nil {
		return nil, err
	}
	method := Compression(b)
	if method >= maxCompression {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("invalid compression method %d", method))
	}
	d.hdr.buf = append(d.hdr.buf[:0], b)
	var hdr [3]uint64
	for i := range hdr {
		if hdr[i], err = binary.ReadUvarint(&d.hdr); err != nil {
			return nil, corrupt(err)
		}
		if hdr[i] > maxRecordSize {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("record header field %d out of range: %d", i, hdr[i]))
		}
	}
	count, rawLen, size := int(hdr[0]), int(hdr[1]), int(hdr[2])
	d.packed = grow(d.packed, size)
	if _, err = io.ReadFull(d.r, d.packed); err != nil {
		return nil, corrupt(err)
	}
	var sum [4]byte
	if _, err = io.ReadFull(d.r, sum[:]); err != nil {
		return nil, corrupt(err)
	}
	if got, want := crc32.Update(crc32.Checksum(d.hdr.buf, crcTable), crcTable, d.packed), binary.LittleEndian.Uint32(sum[:]); got != want {
		return nil, errors.E(errors.Integrity, fmt.Errorf("computed checksum %x but expected checksum %x", got, want))
	}
	raw, err := decompress(method, d.raw, d.packed, rawLen)
	if err != nil {
		return nil, errors.E(errors.Integrity, err)
	}
	if method != None {
		d.raw = raw
	}
	if len(raw) != rawLen {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("decompressed %d bytes, expected %d", len(raw), rawLen))
	}
	if count == 0 {
		return nil, errors.E(errors.Integrity, "empty record")
	}
	br := bytes.NewReader(raw)
	chunk, err := d.codec.Decode(br, count)
	if err != nil {
		return nil, errors.E(errors.Integrity, err)
	}
	if br.Len() != 0 {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("%d undecoded bytes in record", br.Len()))
	}
	if len(chunk) != count {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("decoded %d elements, expected %d", len(chunk), count))
	}
	return chunk, nil
}

// corrupt classifies errors encountered inside a record. Running out
// of data mid-record means the stream was truncated.
func corrupt(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.E(errors.Integrity, "truncated record")
	}
	return err
}
