package kv

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/raft"
)

var _ raft.FSMSnapshot = (*fsmSnapshot)(nil)

type fsmSnapshot struct {
	io.ReadWriter
}

func (f *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	defer sink.Close()
	_, err := io.Copy(sink, f)
	return errors.WithStack(err)
}

func (f *fsmSnapshot) Release() {
}
