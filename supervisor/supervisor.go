package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/google/uuid"
)

var (
	ErrAlreadyRunning = errors.New("already running")
	ErrNoProcess      = errors.New("no process")
)

// System lines written around every run
const (
	StartLine = "[system] starting reservation run..."
	ExitLine  = "[system] reservation run exited."
)

const maxLineSize = 1 << 20

// CommandFunc builds the child command for a run
type CommandFunc func(runID string) (*exec.Cmd, error)

// Supervisor owns at most one child process and captures its combined
// output into a LineBuffer.
type Supervisor struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	runID   string
	done    chan struct{}
	command CommandFunc
	buffer  *LineBuffer
	logger  *log.Logger
}

func New(command CommandFunc, buffer *LineBuffer, logger *log.Logger) *Supervisor {
	if buffer == nil {
		buffer = NewLineBuffer(DefaultCapacity)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Supervisor{command: command, buffer: buffer, logger: logger}
}

// Buffer returns the output buffer shared with log readers
func (s *Supervisor) Buffer() *LineBuffer {
	return s.buffer
}

// Start launches a new run. The buffer is cleared first.
func (s *Supervisor) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return "", ErrAlreadyRunning
	}

	runID := uuid.NewString()
	cmd, err := s.command(runID)
	if err != nil {
		return "", fmt.Errorf("build command: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	s.buffer.Reset()
	s.buffer.Append(StartLine)

	if err := cmd.Start(); err != nil {
		s.buffer.Append(fmt.Sprintf("[system] failed to start reservation run: %v", err))
		return "", fmt.Errorf("start process: %w", err)
	}

	s.cmd = cmd
	s.runID = runID
	s.done = make(chan struct{})
	s.logger.Printf("Started reservation run %s (pid %d)", runID, cmd.Process.Pid)

	go s.drain(cmd, stdout, s.done)
	return runID, nil
}

// drain copies child output into the buffer until the child exits. The exit
// line is appended before the process slot is released so a reader that
// sees "not running" has already been able to read it.
func (s *Supervisor) drain(cmd *exec.Cmd, r io.Reader, done chan struct{}) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		s.buffer.Append(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		s.logger.Printf("reading run output: %v", err)
		_, _ = io.Copy(io.Discard, r)
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		s.logger.Printf("Reservation run exited: %v", waitErr)
	} else {
		s.logger.Println("Reservation run exited")
	}
	s.buffer.Append(ExitLine)

	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
	}
	s.mu.Unlock()

	close(done)
	s.buffer.Wake()
}

// Stop asks the child to shut down with SIGINT. It does not wait for exit.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return ErrNoProcess
	}
	if err := s.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal process: %w", err)
	}
	return nil
}

// Running reports whether a child is alive
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// RunID returns the id of the current run, or "" when idle
func (s *Supervisor) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return ""
	}
	return s.runID
}

// Done returns a channel closed when the current run has been fully drained,
// or nil when idle.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return nil
	}
	return s.done
}
