package eigenda

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Blob layout: a 32-byte header followed by 32-byte symbols. Every symbol starts
// with a zero byte so it stays below the bn254 field modulus, leaving 31 bytes
// of payload per symbol.
const (
	blobHeaderLen    = 32
	symbolLen        = 32
	symbolDataLen    = 31
	blobCodecVersion = 0x00
)

var ErrBlobTooShort = errors.New("blob shorter than header")

// EncodeBlob wraps data in the versioned blob encoding accepted by the disperser.
func EncodeBlob(data []byte) []byte {
	symbols := (len(data) + symbolDataLen - 1) / symbolDataLen
	out := make([]byte, blobHeaderLen, blobHeaderLen+symbols*symbolLen)

	out[0] = 0x00
	out[1] = blobCodecVersion
	binary.BigEndian.PutUint32(out[2:6], uint32(len(data)))

	for i := 0; i < len(data); i += symbolDataLen {
		end := min(i+symbolDataLen, len(data))
		out = append(out, 0x00)
		out = append(out, data[i:end]...)
		if pad := symbolDataLen - (end - i); pad > 0 {
			out = append(out, make([]byte, pad)...)
		}
	}
	return out
}

// DecodeBlob reverses EncodeBlob. Trailing padding added by the disperser is ignored.
func DecodeBlob(blob []byte) ([]byte, error) {
	if len(blob) < blobHeaderLen {
		return nil, ErrBlobTooShort
	}
	if blob[0] != 0x00 {
		return nil, fmt.Errorf("invalid blob header prefix 0x%02x", blob[0])
	}
	if blob[1] != blobCodecVersion {
		return nil, fmt.Errorf("unsupported blob codec version %d", blob[1])
	}
	length := int(binary.BigEndian.Uint32(blob[2:6]))

	body := blob[blobHeaderLen:]
	out := make([]byte, 0, length)
	for i := 0; i < len(body) && len(out) < length; i += symbolLen {
		end := min(i+symbolLen, len(body))
		if end-i < 2 {
			break
		}
		out = append(out, body[i+1:end]...)
	}
	if len(out) < length {
		return nil, fmt.Errorf("blob declares %d bytes but carries %d", length, len(out))
	}
	return out[:length], nil
}
