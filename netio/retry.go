// File: netio/retry.go
//
// SendWithRetry is the bounded-retry send path: a single non-blocking
// send, retried with a 1ms cooperative sleep between attempts until the
// budget elapses.
// The per-tick tx queue drain (connmgr.Connection) does not use this — it
// makes one non-blocking attempt per tick and leaves backpressure to the
// queue — but the 100-continue interim response needs a short bounded
// wait inline and goes through here.
package netio

import (
	"time"

	"github.com/embedserve/emhttpd/api"
)

// retryInterval is the cooperative yield between send attempts while a
// SendWithRetry call is waiting out EAGAIN.
const retryInterval = time.Millisecond

// SendWithRetry attempts Send once; on SendEAgain it keeps retrying, paced
// by retryInterval, until maxRetry has elapsed. A zero or negative maxRetry
// returns the first attempt's outcome immediately without sleeping.
func SendWithRetry(c ClientConn, buf []byte, maxRetry time.Duration) (int, api.SendRetVal) {
	n, status := c.Send(buf)
	if status != api.SendEAgain || maxRetry <= 0 {
		return n, status
	}
	deadline := time.Now().Add(maxRetry)
	for time.Now().Before(deadline) {
		time.Sleep(retryInterval)
		n, status = c.Send(buf)
		if status != api.SendEAgain {
			return n, status
		}
	}
	return n, status
}
