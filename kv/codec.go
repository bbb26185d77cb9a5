package kv

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// Replicated command log entries are hand-encoded: a version byte, a kind
// byte, then big-endian fixed fields and length-prefixed byte strings. Only
// write commands are replicated; reads never enter the log.

const logVersion byte = 1

const (
	logKindPrewrite byte = iota + 1
	logKindCommit
	logKindRollback
	logKindCheckTxnStatus
)

// EncodeCommand serializes a replicable write command into a log entry.
func EncodeCommand(cmd Command) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(logVersion)

	switch c := cmd.(type) {
	case Prewrite:
		buf.WriteByte(logKindPrewrite)
		writeBytes(&buf, c.Primary)
		writeUint64(&buf, c.StartTS)
		writeUint64(&buf, c.LockTTL)
		writeUint64(&buf, c.MinCommitTS)
		writeUint32(&buf, uint32(len(c.Mutations)))
		for _, m := range c.Mutations {
			buf.WriteByte(byte(m.op))
			writeBytes(&buf, m.key)
			writeBytes(&buf, m.value)
			writeUint32(&buf, uint32(len(m.secondaries)))
			for _, s := range m.secondaries {
				writeBytes(&buf, s)
			}
		}
	case Commit:
		buf.WriteByte(logKindCommit)
		writeUint64(&buf, c.StartTS)
		writeUint64(&buf, c.CommitTS)
		writeUint32(&buf, uint32(len(c.Keys)))
		for _, k := range c.Keys {
			writeBytes(&buf, k)
		}
	case Rollback:
		buf.WriteByte(logKindRollback)
		writeUint64(&buf, c.StartTS)
		writeUint32(&buf, uint32(len(c.Keys)))
		for _, k := range c.Keys {
			writeBytes(&buf, k)
		}
	case CheckTxnStatus:
		buf.WriteByte(logKindCheckTxnStatus)
		writeBytes(&buf, c.Primary)
		writeUint64(&buf, c.LockTS)
		writeUint64(&buf, c.CurrentTS)
	default:
		return nil, errors.Newf("command %T is not replicable", cmd)
	}

	return buf.Bytes(), nil
}

// DecodeCommand deserializes a log entry produced by EncodeCommand.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) < 2 {
		return nil, errors.New("command log entry: truncated header")
	}
	if b[0] != logVersion {
		return nil, errors.Newf("command log entry: unsupported version %d", b[0])
	}
	r := bytes.NewReader(b[2:])

	switch b[1] {
	case logKindPrewrite:
		return decodePrewrite(r)
	case logKindCommit:
		return decodeCommit(r)
	case logKindRollback:
		return decodeRollback(r)
	case logKindCheckTxnStatus:
		return decodeCheckTxnStatus(r)
	default:
		return nil, errors.Newf("command log entry: unknown kind %d", b[1])
	}
}

func decodePrewrite(r *bytes.Reader) (Command, error) {
	primary, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	startTS, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	lockTTL, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	minCommitTS, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	muts := make([]Mutation, 0, n)
	for i := uint32(0); i < n; i++ {
		op, err := r.ReadByte()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		key, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		value, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		sn, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		var secondaries []RawKey
		for j := uint32(0); j < sn; j++ {
			s, err := readBytes(r)
			if err != nil {
				return nil, err
			}
			secondaries = append(secondaries, RawKey(s))
		}
		muts = append(muts, Mutation{
			op:          MutationOp(op),
			key:         Key(key),
			value:       Value(value),
			secondaries: secondaries,
		})
	}

	return Prewrite{
		Mutations:   muts,
		Primary:     RawKey(primary),
		StartTS:     startTS,
		LockTTL:     lockTTL,
		MinCommitTS: minCommitTS,
	}, nil
}

func decodeCommit(r *bytes.Reader) (Command, error) {
	startTS, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	commitTS, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	keys, err := readKeys(r)
	if err != nil {
		return nil, err
	}
	return Commit{Keys: keys, StartTS: startTS, CommitTS: commitTS}, nil
}

func decodeRollback(r *bytes.Reader) (Command, error) {
	startTS, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	keys, err := readKeys(r)
	if err != nil {
		return nil, err
	}
	return Rollback{Keys: keys, StartTS: startTS}, nil
}

func decodeCheckTxnStatus(r *bytes.Reader) (Command, error) {
	primary, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	lockTS, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	currentTS, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return CheckTxnStatus{Primary: Key(primary), LockTS: lockTS, CurrentTS: currentTS}, nil
}

func readKeys(r *bytes.Reader) ([]Key, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	keys := make([]Key, 0, n)
	for i := uint32(0); i < n; i++ {
		k, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		keys = append(keys, Key(k))
	}
	return keys, nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint32(buf, uint32(len(b)))
	buf.Write(b)
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, errors.WithStack(err)
	}
	return v, nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, errors.WithStack(err)
	}
	return v, nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > math.MaxInt32 || int(n) > r.Len() {
		return nil, errors.New("command log entry: byte string truncated")
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}
