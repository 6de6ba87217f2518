package client

import "sync"

// ProgressListener is notified while a response body is downloaded.
// It is only notified when the total size is known.
type ProgressListener interface {
	Progress(total, downloaded int64, percent float64)
}

type listeners struct {
	mu   sync.Mutex
	list []ProgressListener
}

func (ls *listeners) add(l ProgressListener) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.list = append(ls.list, l)
}

func (ls *listeners) notify(total, downloaded int64) {
	if total <= 0 {
		return
	}
	if downloaded > total {
		downloaded = total
	}
	percent := float64(downloaded) / float64(total) * 100

	ls.mu.Lock()
	snapshot := append([]ProgressListener(nil), ls.list...)
	ls.mu.Unlock()

	for _, l := range snapshot {
		l.Progress(total, downloaded, percent)
	}
}
