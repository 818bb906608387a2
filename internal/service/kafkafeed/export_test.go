package kafkafeed

import "time"

func (f *Feed) SetNow(now func() time.Time) { f.now = now }
