// Package idgen 用户 ID 生成（Snowflake）
package idgen

import (
	"errors"
	"sync"
	"time"
)

const (
	// Epoch 起始时间戳 (2023-01-01 00:00:00 UTC，毫秒)
	Epoch int64 = 1672502400000

	// 位数分配
	WorkerIDBits     = 5  // 工作机器ID位数
	DatacenterIDBits = 5  // 数据中心ID位数
	SequenceBits     = 12 // 序列号位数

	// 最大值计算(切记不是个数)
	MaxWorkerID     = -1 ^ (-1 << WorkerIDBits)     // 31
	MaxDatacenterID = -1 ^ (-1 << DatacenterIDBits) // 31
	MaxSequence     = -1 ^ (-1 << SequenceBits)     // 4095

	// 位移量
	WorkerIDShift     = SequenceBits                                   // 12
	DatacenterIDShift = SequenceBits + WorkerIDBits                    // 17
	TimestampShift    = SequenceBits + WorkerIDBits + DatacenterIDBits // 22

	// 时钟回拨最大容忍时间（毫秒），容忍范围内等待追上
	maxClockBackwardTolerance = 5
)

var (
	// ErrInvalidWorkerID 工作机器ID超出有效范围
	ErrInvalidWorkerID = errors.New("invalid worker id: must be between 0 and 31")

	// ErrInvalidDatacenterID 数据中心ID超出有效范围
	ErrInvalidDatacenterID = errors.New("invalid datacenter id: must be between 0 and 31")

	// ErrClockMovedBackwards 检测到时钟回拨
	ErrClockMovedBackwards = errors.New("clock moved backwards: refusing to generate id")
)

// IDGenerator ID生成器接口
type IDGenerator interface {
	NextID() (int64, error)
}

// Snowflake Snowflake算法的ID生成器，线程安全
type Snowflake struct {
	mu sync.Mutex

	lastTimestamp int64
	sequence      int64

	// 预计算的 datacenterID 和 workerID 部分
	precomputedPart int64

	// now 返回当前毫秒时间戳，测试中可替换
	now func() int64
}

// NewSnowflake 创建生成器
func NewSnowflake(datacenterID, workerID int64) (*Snowflake, error) {
	if datacenterID < 0 || datacenterID > MaxDatacenterID {
		return nil, ErrInvalidDatacenterID
	}
	if workerID < 0 || workerID > MaxWorkerID {
		return nil, ErrInvalidWorkerID
	}

	return &Snowflake{
		lastTimestamp:   -1,
		precomputedPart: (datacenterID << DatacenterIDShift) | (workerID << WorkerIDShift),
		now:             func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// NextID 生成下一个唯一ID
func (s *Snowflake) NextID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()

	if ts < s.lastTimestamp {
		// 短暂回拨：等待追上；超过容忍范围直接报错
		if s.lastTimestamp-ts > maxClockBackwardTolerance {
			return 0, ErrClockMovedBackwards
		}
		ts = s.waitUntilAfter(s.lastTimestamp - 1)
	}

	if ts == s.lastTimestamp {
		s.sequence = (s.sequence + 1) & MaxSequence
		if s.sequence == 0 {
			// 当前毫秒序列号用尽
			ts = s.waitUntilAfter(s.lastTimestamp)
		}
	} else {
		s.sequence = 0
	}

	s.lastTimestamp = ts
	return ((ts - Epoch) << TimestampShift) | s.precomputedPart | s.sequence, nil
}

func (s *Snowflake) waitUntilAfter(last int64) int64 {
	ts := s.now()
	for ts <= last {
		time.Sleep(100 * time.Microsecond)
		ts = s.now()
	}
	return ts
}

// ParseSnowflakeID 解析ID，返回时间戳（毫秒）、数据中心ID、工作机器ID、序列号
func ParseSnowflakeID(id int64) (timestamp, datacenterID, workerID, sequence int64) {
	timestamp = (id >> TimestampShift) + Epoch
	datacenterID = (id >> DatacenterIDShift) & MaxDatacenterID
	workerID = (id >> WorkerIDShift) & MaxWorkerID
	sequence = id & MaxSequence
	return
}
