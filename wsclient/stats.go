package wsclient

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// heartbeatHistMin/Max bound the RTT histogram at 1 microsecond to 10
// seconds; a ping taking longer than that indicates a dead peer well
// before missed_heartbeats would catch it anyway.
const (
	heartbeatHistMin = int64(time.Microsecond)
	heartbeatHistMax = int64(10 * time.Second)
	heartbeatHistSigFigs = 3
)

func newHeartbeatHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(heartbeatHistMin, heartbeatHistMax, heartbeatHistSigFigs)
}

// Stats summarizes heartbeat ping/pong round-trip latency. The RTT
// histogram is created with the Client and never reset, so HeartbeatsSent,
// HeartbeatRTTMean and HeartbeatRTTP99 cover every session of the Client;
// HeartbeatsSent counts heartbeats answered by a matching PONG (one per
// recorded RTT). MissedHeartbeats is the current (or most recent)
// session's count.
type Stats struct {
	HeartbeatsSent   int64
	HeartbeatRTTMean time.Duration
	HeartbeatRTTP99  time.Duration
	MissedHeartbeats int
}

// Stats reports heartbeat RTT telemetry. Safe to call from any goroutine,
// including from within the user callback.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		HeartbeatsSent:   c.heartbeatHist.TotalCount(),
		HeartbeatRTTMean: time.Duration(int64(c.heartbeatHist.Mean())),
		HeartbeatRTTP99:  time.Duration(c.heartbeatHist.ValueAtQuantile(99)),
		MissedHeartbeats: c.missedHeartbeats,
	}
}
