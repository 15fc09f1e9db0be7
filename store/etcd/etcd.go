// Package etcd implements the store contract on an etcd cluster. Keys
// live under a per-table prefix; updates are guarded by a create-
// revision transaction so a missing key is reported as not found, and
// a checkpoint defragments every configured endpoint.
package etcd

import (
	"context"
	"fmt"
	"time"

	"kvperf/store"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const dialTimeout = 5 * time.Second

type Opener struct {
	Endpoints []string
}

func (o *Opener) Open() (store.Connection, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   o.Endpoints,
		DialTimeout: dialTimeout,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	return &connection{cli: cli, endpoints: o.Endpoints}, nil
}

type connection struct {
	cli       *clientv3.Client
	endpoints []string
}

// OpenSession hands out a view over the shared client; the etcd client
// is safe for concurrent use, so sessions only carry transaction state.
func (c *connection) OpenSession() (store.Session, error) {
	return &session{conn: c}, nil
}

func (c *connection) Close() error { return c.cli.Close() }

type session struct {
	conn    *connection
	inTxn   bool
	pending []clientv3.Op
}

func (s *session) OpenCursor(table string) (store.Cursor, error) {
	return &cursor{sess: s, prefix: "/" + table + "/"}, nil
}

func (s *session) BeginTransaction() error {
	s.inTxn = true
	s.pending = s.pending[:0]
	return nil
}

// CommitTransaction applies the buffered writes in a single etcd
// transaction.
func (s *session) CommitTransaction() error {
	s.inTxn = false
	if len(s.pending) == 0 {
		return nil
	}
	_, err := s.conn.cli.Txn(context.Background()).Then(s.pending...).Commit()
	s.pending = s.pending[:0]
	if err != nil {
		return fmt.Errorf("commit: %s", errInfo(err))
	}
	return nil
}

func (s *session) Checkpoint() error {
	for _, ep := range s.conn.endpoints {
		if _, err := s.conn.cli.Defragment(context.Background(), ep); err != nil {
			return fmt.Errorf("defragment %s: %s", ep, errInfo(err))
		}
	}
	return nil
}

func (s *session) Close() error { return nil }

type cursor struct {
	sess   *session
	prefix string
	key    []byte
	value  []byte
}

func (c *cursor) SetKey(key []byte)     { c.key = key }
func (c *cursor) SetValue(value []byte) { c.value = value }

func (c *cursor) fullKey() string { return c.prefix + string(c.key) }

func (c *cursor) Search() store.Result {
	resp, err := c.sess.conn.cli.Get(context.Background(), c.fullKey())
	if err != nil {
		return store.Fail(fmt.Errorf("search: %s", errInfo(err)))
	}
	if len(resp.Kvs) == 0 {
		return store.NotFound()
	}
	c.value = resp.Kvs[0].Value
	return store.OK()
}

// Insert stores the record, overwriting any existing value. Inside a
// populate transaction the put is buffered and applied on commit.
func (c *cursor) Insert() store.Result {
	k := c.fullKey()
	if c.sess.inTxn {
		c.sess.pending = append(c.sess.pending, clientv3.OpPut(k, string(c.value)))
		return store.OK()
	}
	if _, err := c.sess.conn.cli.Put(context.Background(), k, string(c.value)); err != nil {
		return store.Fail(fmt.Errorf("insert: %s", errInfo(err)))
	}
	return store.OK()
}

func (c *cursor) Update() store.Result {
	k := c.fullKey()
	resp, err := c.sess.conn.cli.Txn(context.Background()).
		If(clientv3.Compare(clientv3.CreateRevision(k), ">", 0)).
		Then(clientv3.OpPut(k, string(c.value))).
		Commit()
	if err != nil {
		return store.Fail(fmt.Errorf("update: %s", errInfo(err)))
	}
	if !resp.Succeeded {
		return store.NotFound()
	}
	return store.OK()
}

func (c *cursor) Prev() store.Result {
	resp, err := c.sess.conn.cli.Get(context.Background(), c.prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortDescend),
		clientv3.WithLimit(1))
	if err != nil {
		return store.Fail(fmt.Errorf("prev: %s", errInfo(err)))
	}
	if len(resp.Kvs) == 0 {
		return store.NotFound()
	}
	c.key = resp.Kvs[0].Key[len(c.prefix):]
	c.value = resp.Kvs[0].Value
	return store.OK()
}

func (c *cursor) Key() []byte   { return c.key }
func (c *cursor) Value() []byte { return c.value }
func (c *cursor) Close() error  { return nil }
