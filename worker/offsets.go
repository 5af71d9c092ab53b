package worker

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

// offsetTracker orders commits per partition. Workers finish messages out of
// order across shards, but a partition's committed offset only advances past
// a message once it and every message fetched before it are done.
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[int]*partitionOffsets
}

type partitionOffsets struct {
	fetched []int64
	done    map[int64]kafka.Message
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[int]*partitionOffsets)}
}

// track records a fetched message. Messages must be tracked in fetch order.
func (t *offsetTracker) track(msg kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	po, ok := t.partitions[msg.Partition]
	if !ok {
		po = &partitionOffsets{done: make(map[int64]kafka.Message)}
		t.partitions[msg.Partition] = po
	}
	po.fetched = append(po.fetched, msg.Offset)
}

// complete marks msg as done and returns the message whose offset may now be
// committed, if any. Untracked messages are returned as is.
func (t *offsetTracker) complete(msg kafka.Message) (kafka.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	po, ok := t.partitions[msg.Partition]
	if !ok || !po.pending(msg.Offset) {
		return msg, true
	}
	po.done[msg.Offset] = msg

	var (
		last  kafka.Message
		ready bool
	)
	for len(po.fetched) > 0 {
		m, ok := po.done[po.fetched[0]]
		if !ok {
			break
		}
		delete(po.done, po.fetched[0])
		po.fetched = po.fetched[1:]
		last, ready = m, true
	}
	return last, ready
}

func (po *partitionOffsets) pending(offset int64) bool {
	for _, o := range po.fetched {
		if o == offset {
			return true
		}
	}
	return false
}
