// Package output 仿真结果的写出：实体注册记录、遥测指标与真值快照
package output

import (
	"context"
	"sync"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity/repository"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// inserter MongoDB集合的写入接口
type inserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// MongoSink 将实体注册记录批量写入MongoDB
// 功能：Write只缓存记录，Flush时一次性写入
type MongoSink struct {
	client *mongo.Client
	coll   inserter

	mtx     sync.Mutex
	pending []repository.Record
	written int
}

// NewMongoSink 连接MongoDB并创建写出目标
func NewMongoSink(c config.EntitySink) *MongoSink {
	client := mongoutil.NewClient(c.URI)
	log.Infof("entity records will be written to %s.%s", c.DB, c.Col)
	return &MongoSink{
		client: client,
		coll:   client.Database(c.DB).Collection(c.Col),
	}
}

// Write 缓存一条记录
func (s *MongoSink) Write(record repository.Record) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.pending = append(s.pending, record)
}

// Flush 写入全部缓存的记录
// 返回：写入失败时记录保留在缓存中，下次Flush重试
func (s *MongoSink) Flush(ctx context.Context) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	docs := make([]interface{}, len(s.pending))
	for i, r := range s.pending {
		docs[i] = r
	}
	if _, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		return err
	}
	s.written += len(s.pending)
	log.Debugf("flushed %d entity records", len(s.pending))
	s.pending = s.pending[:0]
	return nil
}

// Written 已写入的记录数
func (s *MongoSink) Written() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.written
}

// Close 写入剩余记录并断开连接
func (s *MongoSink) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	if s.client != nil {
		if derr := s.client.Disconnect(ctx); err == nil {
			err = derr
		}
	}
	return err
}
