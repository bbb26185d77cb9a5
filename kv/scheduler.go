package kv

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Scheduler is the asynchronous command pipeline. A caller submits a command
// together with a StorageCallback of the matching shape; the scheduler
// latches the command's keys, executes it, and delivers exactly one
// ProcessResult through the callback. NextCommand results loop back into the
// pipeline under the same callback.
type Scheduler struct {
	engine   Engine
	proposer Proposer
	latches  latches
	log      *slog.Logger
	wg       sync.WaitGroup
}

func NewScheduler(engine Engine, proposer Proposer) *Scheduler {
	return &Scheduler{
		engine:   engine,
		proposer: proposer,
		log: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		})),
	}
}

// Submit schedules cmd for asynchronous execution. The callback is moved into
// the pipeline and owned exclusively until invoked.
func (s *Scheduler) Submit(ctx context.Context, cmd Command, cb *StorageCallback) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		cb.Execute(s.run(ctx, cmd))
	}()
}

// BatchCommand pairs a command with the caller-chosen identity it is reported
// under.
type BatchCommand struct {
	ID  uint64
	Cmd Command
}

// SubmitBatch executes one wave of commands concurrently and delivers all
// results in a single ExecuteBatch call, preserving the input order and id
// association. The same callback may receive further waves from later
// SubmitBatch calls; the caller must not reuse an id across waves.
func (s *Scheduler) SubmitBatch(ctx context.Context, cmds []BatchCommand, cb *StorageCallback) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		results := make([]BatchResult, len(cmds))
		eg, ctx := errgroup.WithContext(ctx)
		for i, bc := range cmds {
			eg.Go(func() error {
				results[i] = BatchResult{ID: bc.ID, Result: s.run(ctx, bc.Cmd)}
				return nil
			})
		}
		_ = eg.Wait()

		cb.ExecuteBatch(results)
	}()
}

// Wait blocks until all in-flight commands have delivered their results.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, cmd Command) ProcessResult {
	for {
		pr := s.process(ctx, cmd)
		if pr.kind == resultFailed {
			s.log.WarnContext(ctx, "command failed",
				slog.String("command", cmd.String()),
				slog.String("error", pr.err.Error()),
			)
		}
		next, ok := pr.nextCommand()
		if !ok {
			return pr
		}
		cmd = next
	}
}

func (s *Scheduler) process(ctx context.Context, cmd Command) ProcessResult {
	if keys := latchKeys(cmd); len(keys) > 0 {
		release := s.latches.acquire(keys)
		defer release()
	}

	switch c := cmd.(type) {
	case Prewrite:
		return s.propose(ctx, c)
	case Commit:
		return s.propose(ctx, c)
	case Rollback:
		return s.propose(ctx, c)
	case CheckTxnStatus:
		return s.propose(ctx, c)
	case ResolveLock:
		return s.resolveLock(ctx, c)
	case ScanLock:
		locks, err := s.engine.ScanLocks(ctx, c.MaxTS, c.Limit)
		if err != nil {
			return ResFailed(err)
		}
		return ResLocks(locks)
	case MvccByKey:
		info, err := s.engine.MvccByKey(ctx, c.Key)
		if err != nil {
			return ResFailed(err)
		}
		return ResMvccKey(info)
	case MvccByStartTS:
		pair, err := s.engine.MvccByStartTS(ctx, c.StartTS)
		if err != nil {
			return ResFailed(err)
		}
		return ResMvccStartTS(pair)
	default:
		return ResFailed(errors.Newf("unknown command %T", cmd))
	}
}

func (s *Scheduler) propose(ctx context.Context, cmd Command) ProcessResult {
	pr, err := s.proposer.Propose(ctx, cmd)
	if err != nil {
		return ResFailed(err)
	}
	return pr
}

// resolveLock scans for the transaction's leftover locks and continues with a
// commit or rollback over the affected keys.
func (s *Scheduler) resolveLock(ctx context.Context, c ResolveLock) ProcessResult {
	locks, err := s.engine.ScanLocks(ctx, c.StartTS, 0)
	if err != nil {
		return ResFailed(err)
	}

	var keys []Key
	for _, l := range locks {
		if l.StartTS == c.StartTS {
			keys = append(keys, l.Key)
		}
	}
	if len(keys) == 0 {
		return ResOK()
	}

	if c.CommitTS > 0 {
		return ResNextCommand(Commit{Keys: keys, StartTS: c.StartTS, CommitTS: c.CommitTS})
	}
	return ResNextCommand(Rollback{Keys: keys, StartTS: c.StartTS})
}
