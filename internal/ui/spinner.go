package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Output is where spinners draw. Tests swap it out.
var Output io.Writer = os.Stdout

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a single-line stdout indicator for work that runs outside a
// Bubble Tea program: RPC reads, generation phases, receipt waits.
type Spinner struct {
	out  io.Writer
	stop chan struct{}
	done chan struct{}
	once sync.Once

	mu  sync.Mutex
	msg string
}

// NewSpinner creates a spinner showing msg.
func NewSpinner(msg string) *Spinner {
	return &Spinner{
		out:  Output,
		msg:  msg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// SetMessage replaces the text next to the spinner while it runs.
func (s *Spinner) SetMessage(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

func (s *Spinner) message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msg
}

// Start animates until Stop.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s  %-56s", StyleChain.Render(spinnerFrames[i%len(spinnerFrames)]), s.message())
			select {
			case <-s.stop:
				fmt.Fprintf(s.out, "\r%-60s\r", "")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop clears the line and waits for the animation to end. Safe to call
// more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}
