package statfeed_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/rogpeppe/reftree/statfeed"
)

func TestGetPublish(t *testing.T) {
	c := qt.New(t)
	f := statfeed.NewFeed()
	c.Assert(f.Get(), qt.Equals, statfeed.Snapshot{})
	c.Assert(f.Closed(), qt.IsFalse)

	f.Publish(statfeed.Snapshot{Creates: 3, Destroys: 1, FreeListLen: 2})
	c.Assert(f.Get(), qt.Equals, statfeed.Snapshot{Creates: 3, Destroys: 1, FreeListLen: 2})
}

func TestWatcherSeesEachPublish(t *testing.T) {
	c := qt.New(t)
	f := statfeed.NewFeed()
	snaps := []statfeed.Snapshot{
		{Creates: 1},
		{Creates: 2},
		{Creates: 3},
	}

	ch := make(chan bool)
	go func() {
		for _, s := range snaps {
			f.Publish(s)
			ch <- true
		}
		f.Close()
	}()

	w := f.Watch()
	for _, want := range snaps {
		c.Assert(w.Next(), qt.IsTrue)
		c.Assert(w.Value(), qt.Equals, want)
		<-ch
	}
	c.Assert(w.Next(), qt.IsFalse)
}

func TestCloseWatcherLeavesFeedOpen(t *testing.T) {
	c := qt.New(t)
	f := statfeed.NewFeed()
	w := f.Watch()

	ch := make(chan bool)
	go func() {
		c.Assert(w.Next(), qt.IsTrue)
		ch <- true
	}()
	f.Publish(statfeed.Snapshot{Creates: 1})
	<-ch
	w.Close()

	c.Assert(f.Closed(), qt.IsFalse)
}
