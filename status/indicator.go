// Package status shows navigation progress on a terminal.
package status

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Terminal is a navigation indicator. On a TTY it animates a spinner on a
// single line while a page loads; otherwise it prints one line per event.
// Methods are called from one goroutine, as the router loop does.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	tty     bool
	spinner *Spinner
	url     string
	stop    chan struct{}
	done    chan struct{}
}

// NewTerminal writes to f, animating when f is a terminal.
func NewTerminal(f *os.File) *Terminal {
	return &Terminal{w: f, tty: IsTerminal(int(f.Fd())), spinner: NewSpinner()}
}

// NewWriter writes plain lines to w.
func NewWriter(w io.Writer) *Terminal {
	return &Terminal{w: w, spinner: NewSpinner()}
}

// Loading marks url as loading. A load already shown is replaced.
func (t *Terminal) Loading(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.halt()
	t.url = url
	if !t.tty {
		fmt.Fprintf(t.w, "loading %s\n", url)
		return
	}

	t.spinner.Reset()
	t.draw()
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.animate(t.stop, t.done)
}

// Done reports a committed navigation.
func (t *Terminal) Done(url string) {
	t.finish(fmt.Sprintf("loaded %s", url))
}

// Failed reports a failed navigation.
func (t *Terminal) Failed(url string, err error) {
	t.finish(fmt.Sprintf("failed %s: %v", url, err))
}

func (t *Terminal) finish(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.halt()
	t.url = ""
	if t.tty {
		fmt.Fprint(t.w, "\r\x1b[K")
	}
	fmt.Fprintln(t.w, msg)
}

func (t *Terminal) animate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.spinner.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.spinner.Tick() {
				t.draw()
			}
			t.mu.Unlock()
		}
	}
}

// draw repaints the spinner line. Caller holds t.mu.
func (t *Terminal) draw() {
	fmt.Fprintf(t.w, "\r\x1b[K%s loading %s", t.spinner.Frame(), t.url)
}

// halt stops the animation goroutine. Caller holds t.mu; the lock is
// released while waiting so a tick in progress can finish.
func (t *Terminal) halt() {
	if t.stop == nil {
		return
	}
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	close(stop)

	t.mu.Unlock()
	<-done
	t.mu.Lock()
}
