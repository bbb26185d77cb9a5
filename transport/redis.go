package transport

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/redcon"

	"github.com/coralkv/coral/kv"
	"github.com/coralkv/coral/store"
)

const defaultLockTTLms uint64 = 30_000

//nolint:gomnd
var argsLen = map[string]int{
	"GET":     2,
	"SET":     3,
	"DEL":     2,
	"EXISTS":  2,
	"PING":    1,
	"LOCKS":   1,
	"RGET":    2,
	"RSET":    3,
	"RDEL":    2,
	"REXISTS": 2,
}

// RedisServer exposes the transactional and raw key spaces over the redis
// protocol. SET/DEL/GET/EXISTS run through the MVCC pipeline; the R-prefixed
// commands hit the raw store directly.
type RedisServer struct {
	listen net.Listener
	engine kv.Engine
	sched  *kv.Scheduler
	raw    store.RawStore
	clock  *kv.HLC

	route map[string]func(conn redcon.Conn, cmd redcon.Command)
}

func NewRedisServer(listen net.Listener, engine kv.Engine, sched *kv.Scheduler, raw store.RawStore, clock *kv.HLC) *RedisServer {
	r := &RedisServer{
		listen: listen,
		engine: engine,
		sched:  sched,
		raw:    raw,
		clock:  clock,
	}

	r.route = map[string]func(conn redcon.Conn, cmd redcon.Command){
		"PING":    r.ping,
		"SET":     r.set,
		"GET":     r.get,
		"DEL":     r.del,
		"EXISTS":  r.exists,
		"LOCKS":   r.scanLocks,
		"RSET":    r.rawSet,
		"RGET":    r.rawGet,
		"RDEL":    r.rawDel,
		"REXISTS": r.rawExists,
	}

	return r
}

func (r *RedisServer) Run() error {
	err := redcon.Serve(r.listen, func(conn redcon.Conn, cmd redcon.Command) {
		name := strings.ToUpper(string(cmd.Args[0]))
		if err := r.validateCmd(name, cmd); err != nil {
			conn.WriteError(err.Error())
			return
		}

		f, ok := r.route[name]
		if ok {
			f(conn, cmd)
			return
		}

		conn.WriteError("ERR unsupported command '" + string(cmd.Args[0]) + "'")
	},
		func(conn redcon.Conn) bool {
			return true
		},
		func(conn redcon.Conn, err error) {
		})

	return errors.WithStack(err)
}

func (r *RedisServer) Stop() {
	_ = r.listen.Close()
}

func (r *RedisServer) validateCmd(name string, cmd redcon.Command) error {
	want, ok := argsLen[name]
	if !ok {
		return nil
	}
	if len(cmd.Args) != want {
		return errors.Newf("ERR wrong number of arguments for '%s' command", strings.ToLower(name))
	}
	for _, arg := range cmd.Args[1:] {
		if len(arg) == 0 {
			return errors.Newf("ERR empty argument for '%s' command", strings.ToLower(name))
		}
	}
	return nil
}

func (r *RedisServer) ping(conn redcon.Conn, _ redcon.Command) {
	conn.WriteString("PONG")
}

// ---- transactional commands ----

func (r *RedisServer) set(conn redcon.Conn, cmd redcon.Command) {
	mut, err := kv.PutMutation(kv.Key(cmd.Args[1]), kv.Value(cmd.Args[2]), nil)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}

	if err := r.txnWrite(context.Background(), mut); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteString("OK")
}

func (r *RedisServer) del(conn redcon.Conn, cmd redcon.Command) {
	mut, err := kv.DeleteMutation(kv.Key(cmd.Args[1]), nil)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}

	if err := r.txnWrite(context.Background(), mut); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteInt(1)
}

func (r *RedisServer) get(conn redcon.Conn, cmd redcon.Command) {
	v, err := r.engine.GetAt(context.Background(), kv.Key(cmd.Args[1]), r.clock.Next())
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			conn.WriteNull()
			return
		}
		conn.WriteError(err.Error())
		return
	}
	conn.WriteBulk(v)
}

func (r *RedisServer) exists(conn redcon.Conn, cmd redcon.Command) {
	_, err := r.engine.GetAt(context.Background(), kv.Key(cmd.Args[1]), r.clock.Next())
	switch {
	case err == nil:
		conn.WriteInt(1)
	case errors.Is(err, kv.ErrKeyNotFound):
		conn.WriteInt(0)
	default:
		conn.WriteError(err.Error())
	}
}

func (r *RedisServer) scanLocks(conn redcon.Conn, _ redcon.Command) {
	type reply struct {
		locks []*kv.Lock
		err   error
	}
	done := make(chan reply, 1)

	r.sched.Submit(context.Background(), kv.ScanLock{MaxTS: r.clock.Next()},
		kv.NewLocksCallback(func(locks []*kv.Lock, err error) {
			done <- reply{locks: locks, err: err}
		}))

	res := <-done
	if res.err != nil {
		conn.WriteError(res.err.Error())
		return
	}
	conn.WriteArray(len(res.locks))
	for _, l := range res.locks {
		conn.WriteBulkString(fmt.Sprintf("key=%q start_ts=%d primary=%q", l.Key, l.StartTS, l.Primary))
	}
}

// txnWrite runs a single-key transaction through the scheduler: prewrite,
// then commit, rolling the lock back if prewrite fails.
func (r *RedisServer) txnWrite(ctx context.Context, mut kv.Mutation) error {
	key := mut.Key()
	startTS := r.clock.Next()

	prewrite := make(chan error, 1)
	r.sched.Submit(ctx, kv.Prewrite{
		Mutations: []kv.Mutation{mut},
		Primary:   kv.RawKey(key),
		StartTS:   startTS,
		LockTTL:   defaultLockTTLms,
	}, kv.NewBooleansCallback(func(results []error, err error) {
		if err == nil {
			for _, res := range results {
				if res != nil {
					err = res
					break
				}
			}
		}
		prewrite <- err
	}))

	if err := <-prewrite; err != nil {
		rollback := make(chan error, 1)
		r.sched.Submit(ctx, kv.Rollback{Keys: []kv.Key{key}, StartTS: startTS},
			kv.NewBooleanCallback(func(rbErr error) {
				rollback <- rbErr
			}))
		<-rollback
		return err
	}

	commit := make(chan error, 1)
	r.sched.Submit(ctx, kv.Commit{
		Keys:     []kv.Key{key},
		StartTS:  startTS,
		CommitTS: r.clock.Next(),
	}, kv.NewBooleanCallback(func(err error) {
		commit <- err
	}))
	return <-commit
}

// ---- raw commands ----

func (r *RedisServer) rawSet(conn redcon.Conn, cmd redcon.Command) {
	if err := r.raw.Put(context.Background(), cmd.Args[1], cmd.Args[2]); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteString("OK")
}

func (r *RedisServer) rawGet(conn redcon.Conn, cmd redcon.Command) {
	v, err := r.raw.Get(context.Background(), cmd.Args[1])
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			conn.WriteNull()
			return
		}
		conn.WriteError(err.Error())
		return
	}
	conn.WriteBulk(v)
}

func (r *RedisServer) rawDel(conn redcon.Conn, cmd redcon.Command) {
	if err := r.raw.Delete(context.Background(), cmd.Args[1]); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteInt(1)
}

func (r *RedisServer) rawExists(conn redcon.Conn, cmd redcon.Command) {
	ok, err := r.raw.Exists(context.Background(), cmd.Args[1])
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	if ok {
		conn.WriteInt(1)
		return
	}
	conn.WriteInt(0)
}
