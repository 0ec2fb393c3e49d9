package log

import (
	"sync"
	"testing"
	"time"
)

func TestAsyncLoggerCloseWithConcurrentProducers(t *testing.T) {
	al := NewAsyncLogger(16)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	// hammer the logger from several goroutines while Close runs; a send on
	// a closed channel would panic here
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					al.Info("shutdown noise")
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	al.Close()

	close(stop)
	wg.Wait()
}

func TestAsyncLoggerCloseIdempotent(t *testing.T) {
	al := NewAsyncLogger(8)
	al.Info("one entry")

	al.Close()
	al.Close() // must not panic
}

func TestAsyncLoggerDropsAfterClose(t *testing.T) {
	al := NewAsyncLogger(8)
	al.Close()

	// queuing after shutdown is a silent no-op
	al.Warn("too late")
}
