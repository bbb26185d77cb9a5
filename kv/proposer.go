package kv

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/raft"
)

// Proposer replicates a write command and returns the process result the
// state machine produced for it.
type Proposer interface {
	Propose(ctx context.Context, cmd Command) (ProcessResult, error)
}

// RaftProposer pushes commands through a raft log. Proposing on a follower
// fails with raft.ErrNotLeader, which surfaces to the caller as a Failed
// result.
type RaftProposer struct {
	raft    *raft.Raft
	timeout time.Duration
}

var _ Proposer = (*RaftProposer)(nil)

func NewRaftProposer(r *raft.Raft, timeout time.Duration) *RaftProposer {
	return &RaftProposer{raft: r, timeout: timeout}
}

func (p *RaftProposer) Propose(_ context.Context, cmd Command) (ProcessResult, error) {
	b, err := EncodeCommand(cmd)
	if err != nil {
		return ProcessResult{}, errors.WithStack(err)
	}

	f := p.raft.Apply(b, p.timeout)
	if err := f.Error(); err != nil {
		return ProcessResult{}, errors.WithStack(err)
	}

	pr, ok := f.Response().(ProcessResult)
	if !ok {
		return ProcessResult{}, errors.Newf("unexpected fsm response %T", f.Response())
	}
	return pr, nil
}

// LocalProposer short-circuits replication and applies commands to the state
// machine directly. Used by single-node setups and tests; entries still go
// through the log codec so both paths exercise the same encoding.
type LocalProposer struct {
	fsm *FSM
}

var _ Proposer = (*LocalProposer)(nil)

func NewLocalProposer(fsm *FSM) *LocalProposer {
	return &LocalProposer{fsm: fsm}
}

func (p *LocalProposer) Propose(_ context.Context, cmd Command) (ProcessResult, error) {
	b, err := EncodeCommand(cmd)
	if err != nil {
		return ProcessResult{}, errors.WithStack(err)
	}

	pr, ok := p.fsm.Apply(&raft.Log{Data: b}).(ProcessResult)
	if !ok {
		return ProcessResult{}, errors.New("unexpected fsm response")
	}
	return pr, nil
}
