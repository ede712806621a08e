package sysconfig

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerNotifiesOnlyOnDifference(t *testing.T) {
	var calls atomic.Int32
	fetch := func(context.Context) (map[string]string, error) {
		n := calls.Add(1)
		switch {
		case n == 1:
			return nil, errors.New("transient")
		case n < 4:
			return map[string]string{"k": "same"}, nil
		default:
			return map[string]string{"k": "changed"}, nil
		}
	}

	var ls Listeners
	notified := make(chan struct{}, 4)
	ls.Add(ListenerFunc(func() { notified <- struct{}{} }))

	p := StartPoller("test", 5*time.Millisecond, map[string]string{"k": "same"}, fetch, &ls)
	defer p.Stop()

	select {
	case <-notified:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	if calls.Load() < 4 {
		t.Fatalf("notified after %d polls, want at least 4", calls.Load())
	}
}

func TestPollerStopNil(t *testing.T) {
	var p *Poller
	p.Stop()
}
