package session

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"

	"github.com/parlorworks/sessionauth/identity"
)

const (
	// CurrentSchemaVersion is the encoding emitted by [Encode].
	CurrentSchemaVersion uint8 = 2

	schemaVersionV1 uint8 = 1
)

const maxAttributes = 1024

// ErrUnsupportedSchema is returned when a blob carries an unknown version.
var ErrUnsupportedSchema = errors.New("unsupported session schema version")

// Encode serializes a record into the current binary schema: version byte,
// length-prefixed ids, attribute pairs, identity blob, big-endian
// timestamps. The dirty flag is transient and never encoded.
func Encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(CurrentSchemaVersion)

	if err := writeString8(&buf, r.SessionID); err != nil {
		return nil, errors.New("sessionID too long")
	}
	if err := writeString8(&buf, r.UserID); err != nil {
		return nil, errors.New("userID too long")
	}
	if err := writeString8(&buf, r.TenantID); err != nil {
		return nil, errors.New("tenantID too long")
	}

	if len(r.Attributes) > maxAttributes {
		return nil, errors.New("too many attributes")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.Attributes))); err != nil {
		return nil, err
	}
	for k, v := range r.Attributes {
		if err := writeString16(&buf, k); err != nil {
			return nil, errors.New("attribute key too long")
		}
		if err := writeString16(&buf, v); err != nil {
			return nil, errors.New("attribute value too long")
		}
	}

	var blob []byte
	if r.Identity != nil {
		var err error
		blob, err = json.Marshal(r.Identity)
		if err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(blob))); err != nil {
		return nil, err
	}
	buf.Write(blob)

	if err := binary.Write(&buf, binary.BigEndian, r.InitTime); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode deserializes a binary blob into a clean record. Both the current
// schema and v1 (no identity blob) are accepted; SchemaVersion on the
// returned record reports which one was read.
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion && version != schemaVersionV1 {
		return nil, ErrUnsupportedSchema
	}

	r := &Record{SchemaVersion: version}

	if r.SessionID, err = readString8(reader); err != nil {
		return nil, err
	}
	if r.UserID, err = readString8(reader); err != nil {
		return nil, err
	}
	if r.TenantID, err = readString8(reader); err != nil {
		return nil, err
	}

	var attrCount uint16
	if err := binary.Read(reader, binary.BigEndian, &attrCount); err != nil {
		return nil, err
	}
	if int(attrCount) > maxAttributes {
		return nil, errors.New("attribute count out of range")
	}
	r.Attributes = make(map[string]string, attrCount)
	for i := 0; i < int(attrCount); i++ {
		k, err := readString16(reader)
		if err != nil {
			return nil, err
		}
		v, err := readString16(reader)
		if err != nil {
			return nil, err
		}
		r.Attributes[k] = v
	}

	if version >= CurrentSchemaVersion {
		var blobLen uint32
		if err := binary.Read(reader, binary.BigEndian, &blobLen); err != nil {
			return nil, err
		}
		if int64(blobLen) > int64(reader.Len()) {
			return nil, errors.New("identity blob length out of range")
		}
		if blobLen > 0 {
			blob := make([]byte, blobLen)
			if _, err := io.ReadFull(reader, blob); err != nil {
				return nil, err
			}
			id := &identity.Identity{}
			if err := json.Unmarshal(blob, id); err != nil {
				return nil, err
			}
			r.Identity = id
		}
	}

	if err := binary.Read(reader, binary.BigEndian, &r.InitTime); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, err
	}

	return r, nil
}

// SchemaVersionOf reports the schema byte of an encoded blob without
// decoding it. Returns 0 for an empty blob.
func SchemaVersionOf(data []byte) uint8 {
	if len(data) == 0 {
		return 0
	}
	return data[0]
}

func writeString8(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return errors.New("string too long")
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString8(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return "", err
	}
	return string(out), nil
}

func writeString16(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("string too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString16(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return "", err
	}
	return string(out), nil
}
