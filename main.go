package main

import (
	"context"
	"flag"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/coralkv/coral/kv"
	"github.com/coralkv/coral/store"
	"github.com/coralkv/coral/transport"
)

var (
	raftAddr      = flag.String("address", "localhost:50051", "TCP host+port for raft traffic on this node")
	redisAddr     = flag.String("redis_address", "localhost:6379", "TCP host+port for the redis listener")
	raftID        = flag.String("raft_id", "", "Node id used by raft")
	dataDir       = flag.String("data_dir", "", "Data dir; empty runs fully in memory")
	raftBootstrap = flag.Bool("raft_bootstrap", false, "Whether to bootstrap the raft cluster")
)

const proposeTimeout = time.Second

func main() {
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "coral",
		Level: hclog.Info,
	})

	if *raftID == "" {
		logger.Error("flag --raft_id is required")
		os.Exit(1)
	}

	ctx := context.Background()

	engine := store.NewMVCCEngine()
	fsm := kv.NewFSM(engine)

	r, err := kv.NewRaft(ctx, *raftID, *raftAddr, *dataDir, fsm, *raftBootstrap, logger)
	if err != nil {
		logger.Error("failed to start raft", "error", err)
		os.Exit(1)
	}

	sched := kv.NewScheduler(engine, kv.NewRaftProposer(r, proposeTimeout))

	raw, err := newRawStore(*dataDir, *raftID)
	if err != nil {
		logger.Error("failed to open raw store", "error", err)
		os.Exit(1)
	}
	defer raw.Close()

	redisL, err := net.Listen("tcp", *redisAddr)
	if err != nil {
		logger.Error("failed to listen", "address", *redisAddr, "error", err)
		os.Exit(1)
	}

	logger.Info("node started",
		"raft_id", *raftID,
		"raft_address", *raftAddr,
		"redis_address", *redisAddr,
	)

	eg := errgroup.Group{}
	eg.Go(func() error {
		return errors.WithStack(transport.NewRedisServer(redisL, engine, sched, raw, kv.NewHLC()).Run())
	})

	if err := eg.Wait(); err != nil {
		logger.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}

func newRawStore(dataDir, id string) (store.RawStore, error) {
	if dataDir == "" {
		return store.NewMemoryRawStore(), nil
	}
	return store.NewBoltRawStore(filepath.Join(dataDir, id, "raw.dat"))
}
