package journal

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
)

type RecordType uint8

const (
	RecordNew RecordType = iota + 1
	RecordCancel
	RecordAmend
)

// Record is one journalled order-entry command. Data holds the raw wire
// frame, so replay feeds the exact bytes the gateway originally parsed.
type Record struct {
	Type RecordType
	Time int64
	Data []byte
}

// Appender is the write half of the journal; the gateway only needs this.
type Appender interface {
	Append(rec Record) error
}

// encodeRecord frames a record as type | time | len | data | crc, with
// the CRC covering everything before it.
func encodeRecord(rec Record) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(byte(rec.Type))
	binary.Write(buf, binary.LittleEndian, rec.Time)
	binary.Write(buf, binary.LittleEndian, uint32(len(rec.Data)))
	buf.Write(rec.Data)
	sum := crc32.ChecksumIEEE(buf.Bytes())
	binary.Write(buf, binary.LittleEndian, sum)
	return buf.Bytes()
}

// decodeRecord reads one frame. A short read or checksum mismatch means
// a torn tail write and surfaces as io.ErrUnexpectedEOF so replay stops
// cleanly at the last intact record.
func decodeRecord(r io.Reader) (Record, error) {
	header := make([]byte, 1+8+4)
	if _, err := io.ReadFull(r, header); err != nil {
		return Record{}, err
	}

	rec := Record{
		Type: RecordType(header[0]),
		Time: int64(binary.LittleEndian.Uint64(header[1:9])),
	}
	n := binary.LittleEndian.Uint32(header[9:13])

	rec.Data = make([]byte, n)
	if _, err := io.ReadFull(r, rec.Data); err != nil {
		return Record{}, io.ErrUnexpectedEOF
	}

	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return Record{}, io.ErrUnexpectedEOF
	}

	sum := crc32.ChecksumIEEE(header)
	sum = crc32.Update(sum, crc32.IEEETable, rec.Data)
	if sum != binary.LittleEndian.Uint32(crcBuf[:]) {
		return Record{}, io.ErrUnexpectedEOF
	}
	return rec, nil
}
