package kv

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/raft"
)

// FSM is the replicated state machine: it decodes committed log entries and
// executes them against the local engine. The ProcessResult it returns
// travels back to the proposing scheduler through the raft apply future.
type FSM struct {
	engine Engine
	log    *slog.Logger
}

var _ raft.FSM = (*FSM)(nil)

func NewFSM(engine Engine) *FSM {
	return &FSM{
		engine: engine,
		log: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		})),
	}
}

func (f *FSM) Apply(l *raft.Log) interface{} {
	cmd, err := DecodeCommand(l.Data)
	if err != nil {
		return ResFailed(errors.WithStack(err))
	}
	return f.apply(context.Background(), cmd)
}

func (f *FSM) apply(ctx context.Context, cmd Command) ProcessResult {
	switch c := cmd.(type) {
	case Prewrite:
		results, err := f.engine.Prewrite(ctx, c.Mutations, c.Primary, c.StartTS, c.LockTTL, c.MinCommitTS)
		if err != nil {
			return ResFailed(err)
		}
		return ResMulti(results)
	case Commit:
		if err := f.engine.Commit(ctx, c.Keys, c.StartTS, c.CommitTS); err != nil {
			return ResFailed(err)
		}
		return ResOK()
	case Rollback:
		if err := f.engine.Rollback(ctx, c.Keys, c.StartTS); err != nil {
			return ResFailed(err)
		}
		return ResOK()
	case CheckTxnStatus:
		status, err := f.engine.CheckTxnStatus(ctx, c.Primary, c.LockTS, c.CurrentTS)
		if err != nil {
			return ResFailed(err)
		}
		return ResTxnStatus(status)
	default:
		f.log.WarnContext(ctx, "non-replicable command in log", slog.String("command", cmd.String()))
		return ResFailed(errors.Newf("command %s is not replicable", cmd))
	}
}

func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	rw, err := f.engine.Snapshot()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &fsmSnapshot{rw}, nil
}

func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	return errors.WithStack(f.engine.Restore(rc))
}
