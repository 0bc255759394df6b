package peerstore

import "time"

func defaultNow() int64 {
	return time.Now().UnixNano()
}
