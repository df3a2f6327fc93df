package downloader

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// progressTracker implements getter.ProgressTracker using
// a terminal progress bar.
type progressTracker struct {
	lock sync.Mutex
	out  io.Writer
}

func (p *progressTracker) TrackProgress(src string, currentSize, totalSize int64, stream io.ReadCloser) io.ReadCloser {
	p.lock.Lock()
	defer p.lock.Unlock()

	bar := progressbar.NewOptions64(totalSize,
		progressbar.OptionSetDescription(src),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
	_ = bar.Set64(currentSize)

	return &trackedStream{
		Reader: io.TeeReader(stream, bar),
		close: func() error {
			_ = bar.Finish()
			return stream.Close()
		},
	}
}

type trackedStream struct {
	io.Reader
	close func() error
}

func (t *trackedStream) Close() error {
	return t.close()
}
