package sink

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineQueue is a bounded FIFO holding messages while the broker is
// unreachable. When full, eviction prefers the oldest QoS-0 decision event
// so QoS-1 system events survive an outage. Not safe for concurrent use —
// caller must synchronize.
type offlineQueue struct {
	msgs     []bufferedMsg
	capacity int
	dropped  bool // true if any message was dropped since last drain
}

func newOfflineQueue(capacity int) *offlineQueue {
	return &offlineQueue{capacity: capacity}
}

func (q *offlineQueue) push(msg bufferedMsg) {
	if len(q.msgs) == q.capacity {
		q.evictOne()
	}
	q.msgs = append(q.msgs, msg)
}

// evictOne drops the oldest QoS-0 message, or the oldest message outright
// when everything buffered is QoS 1.
func (q *offlineQueue) evictOne() {
	if !q.dropped {
		log.Printf("sink: buffer full (%d messages), dropping", q.capacity)
		q.dropped = true
	}
	victim := 0
	for i, m := range q.msgs {
		if m.qos == 0 {
			victim = i
			break
		}
	}
	q.msgs = append(q.msgs[:victim], q.msgs[victim+1:]...)
}

// drainAll returns the buffered messages in order and empties the queue.
func (q *offlineQueue) drainAll() []bufferedMsg {
	if len(q.msgs) == 0 {
		return nil
	}
	out := q.msgs
	q.msgs = nil
	q.dropped = false
	return out
}

func (q *offlineQueue) len() int {
	return len(q.msgs)
}
