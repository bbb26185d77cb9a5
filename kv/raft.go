package kv

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	boltdb "github.com/hashicorp/raft-boltdb/v2"
)

const snapshotRetainCount = 3

// NewRaft starts a raft node replicating the given state machine. An empty
// dataDir selects in-memory log, stable, and snapshot stores (tests and
// throwaway nodes); otherwise logs and stable state live in bolt files under
// dataDir/<id>.
func NewRaft(
	_ context.Context,
	myID string,
	myAddress string,
	dataDir string,
	fsm raft.FSM,
	bootstrap bool,
	logger hclog.Logger,
) (*raft.Raft, error) {
	c := raft.DefaultConfig()
	c.LocalID = raft.ServerID(myID)
	if logger != nil {
		c.Logger = logger.Named("raft")
	}

	var (
		ldb raft.LogStore
		sdb raft.StableStore
		fss raft.SnapshotStore
		err error
	)
	if dataDir == "" {
		ldb = raft.NewInmemStore()
		sdb = raft.NewInmemStore()
		fss = raft.NewInmemSnapshotStore()
	} else {
		baseDir := filepath.Join(dataDir, myID)

		bdb, err := boltdb.NewBoltStore(filepath.Join(baseDir, "logs.dat"))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		ldb = bdb

		stable, err := boltdb.NewBoltStore(filepath.Join(baseDir, "stable.dat"))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		sdb = stable

		fss, err = raft.NewFileSnapshotStore(baseDir, snapshotRetainCount, os.Stderr)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	advertise, err := net.ResolveTCPAddr("tcp", myAddress)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	raftTransport, err := raft.NewTCPTransportWithLogger(
		myAddress,
		advertise,
		3,
		10*time.Second,
		logger,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	r, err := raft.NewRaft(c, fsm, ldb, sdb, fss, raftTransport)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if bootstrap {
		f := r.BootstrapCluster(raft.Configuration{
			Servers: []raft.Server{
				{
					Suffrage: raft.Voter,
					ID:       raft.ServerID(myID),
					Address:  raft.ServerAddress(myAddress),
				},
			},
		})
		if err := f.Error(); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return r, nil
}
