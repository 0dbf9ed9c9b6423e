package sandbox

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// Session is a running interactive execution. Output lines are relayed
// through a channel while the process may be fed input through Send, the
// way a user interacts with a program on a terminal.
type Session struct {
	ID string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output chan string

	mu       sync.Mutex
	done     chan struct{}
	exitCode int
	exitErr  error
}

// startSession launches the interpreter on path and begins relaying output
func startSession(id, interpreter, path, workDir string) (*Session, error) {
	cmd := exec.Command(interpreter, "-u", path)
	if workDir != "" {
		cmd.Dir = workDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	session := &Session{
		ID:     id,
		cmd:    cmd,
		stdin:  stdin,
		output: make(chan string, 256),
		done:   make(chan struct{}),
	}

	go session.relay(stdout)

	return session, nil
}

// relay pumps process output into the session channel until the process
// exits, then records the exit code and closes the channel.
func (s *Session) relay(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case s.output <- scanner.Text():
		default:
			// Consumer fell behind, drop the oldest line
			select {
			case <-s.output:
			default:
			}
			s.output <- scanner.Text()
		}
	}

	err := s.cmd.Wait()

	s.mu.Lock()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			s.exitCode = exitErr.ExitCode()
		} else {
			s.exitErr = err
		}
	}
	s.mu.Unlock()

	close(s.output)
	close(s.done)
}

// Send writes a line of input to the process stdin
func (s *Session) Send(input string) error {
	if _, err := io.WriteString(s.stdin, input+"\n"); err != nil {
		return fmt.Errorf("failed to write input: %w", err)
	}
	return nil
}

// ReadLine returns the next output line, blocking until one arrives, the
// process exits, or ctx is done. The second return is false once the
// session has no more output.
func (s *Session) ReadLine(ctx context.Context) (string, bool, error) {
	select {
	case line, ok := <-s.output:
		return line, ok, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// Running reports whether the process is still alive
func (s *Session) Running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the process exits and returns its exit code
func (s *Session) Wait(ctx context.Context) (int, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.exitErr
}

// Stop kills the process if it is still running
func (s *Session) Stop() error {
	if !s.Running() {
		return nil
	}

	_ = s.stdin.Close()
	if err := s.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill session: %w", err)
	}

	// Let relay observe the exit
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
	}

	return nil
}
