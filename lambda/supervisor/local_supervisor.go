// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/devlambda/devlambda/lambda/supervisor/model"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// typecheck interface compliance
var _ model.ProcessSupervisor = (*LocalSupervisor)(nil)

const (
	// grace period for output copying once the main process exited,
	// grandchildren may keep the pipes open
	waitDelay = time.Second

	maxControlMessageSize = 6 * 1024 * 1024
	eventsBufferSize      = 128
)

type process struct {
	// pid of the running process
	pid int
	// channel that can be use to block
	// while waiting on process termination.
	termination chan struct{}
	// parent end of the control socket, nil without control channel
	control net.Conn
}

type LocalSupervisor struct {
	events         chan model.Event
	processMapLock sync.Mutex
	processMap     map[string]process
}

func NewLocalSupervisor() *LocalSupervisor {
	return &LocalSupervisor{
		events:     make(chan model.Event, eventsBufferSize),
		processMap: make(map[string]process),
	}
}

// Exec starts the process described by req in its own process group and
// returns its pid. A termination event is emitted once the process exits
// and its output has been copied.
func (s *LocalSupervisor) Exec(ctx context.Context, req *model.ExecRequest) (int, error) {
	s.processMapLock.Lock()
	_, exists := s.processMap[req.Name]
	s.processMapLock.Unlock()
	if exists {
		msg := fmt.Sprintf("process %s already exists", req.Name)
		return 0, &model.SupervisorError{Kind: model.InvalidState, Message: &msg}
	}

	command := exec.Command(req.Path, req.Args...)

	if req.Env != nil {
		envStrings := make([]string, 0, len(*req.Env))
		for key, value := range *req.Env {
			envStrings = append(envStrings, key+"="+value)
		}
		command.Env = envStrings
	}

	if req.Cwd != nil && *req.Cwd != "" {
		command.Dir = *req.Cwd
	}

	command.Stdin = req.Stdin
	command.Stdout = req.StdoutWriter
	command.Stderr = req.StderrWriter
	command.WaitDelay = waitDelay

	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var control net.Conn
	if req.ControlChannel {
		parent, child, err := controlSocketPair()
		if err != nil {
			return 0, err
		}
		// the child inherits its own copy on Start
		defer child.Close()
		command.ExtraFiles = []*os.File{child}
		control = parent
	}

	if err := command.Start(); err != nil {
		if control != nil {
			control.Close()
		}
		return 0, err
	}

	pid := command.Process.Pid
	termination := make(chan struct{})
	s.processMapLock.Lock()
	s.processMap[req.Name] = process{
		pid:         pid,
		termination: termination,
		control:     control,
	}
	s.processMapLock.Unlock()

	if control != nil {
		go s.readControl(req.Name, control)
	}

	go func() {
		err := command.Wait()
		// close the termination channel to unblock whoever's blocked on
		// it (used to implement kill's blocking behaviour)
		close(termination)
		if control != nil {
			control.Close()
		}

		s.processMapLock.Lock()
		delete(s.processMap, req.Name)
		s.processMapLock.Unlock()

		var cell int32
		var exitStatus *int32
		var signo *int32
		var exitErr *exec.ExitError

		if err == nil {
			exitStatus = &cell
		} else if errors.As(err, &exitErr) {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				if code := status.ExitStatus(); code >= 0 {
					cell = int32(code)
					exitStatus = &cell
				} else {
					cell = int32(status.Signal())
					signo = &cell
				}
			}
		}

		if signo == nil && exitStatus == nil {
			log.WithError(err).Warn("Cannot convert process exit status to unix WaitStatus. Assuming ExitStatus 1")
			cell = 1
			exitStatus = &cell
		}
		s.emit(model.EventData{
			Name:       &req.Name,
			Signo:      signo,
			ExitStatus: exitStatus,
		})
	}()

	return pid, nil
}

func controlSocketPair() (net.Conn, *os.File, error) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create control socket pair: %w", err)
	}
	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])

	parentFile := os.NewFile(uintptr(fds[0]), "control-parent")
	childFile := os.NewFile(uintptr(fds[1]), "control-child")

	// FileConn dups the descriptor
	conn, err := net.FileConn(parentFile)
	parentFile.Close()
	if err != nil {
		childFile.Close()
		return nil, nil, fmt.Errorf("failed to open control socket: %w", err)
	}
	return conn, childFile, nil
}

func (s *LocalSupervisor) readControl(name string, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxControlMessageSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		message := make(json.RawMessage, len(line))
		copy(message, line)
		s.emit(model.EventData{Name: &name, Message: message})
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.WithError(err).WithField("name", name).Debug("Control channel read failed")
	}
}

func (s *LocalSupervisor) emit(data model.EventData) {
	s.events <- model.Event{
		Time:  uint64(time.Now().UnixMilli()),
		Event: data,
	}
}

// Send writes msg as a single JSON line on the process' control channel.
func (s *LocalSupervisor) Send(ctx context.Context, req *model.SendRequest) error {
	s.processMapLock.Lock()
	process, ok := s.processMap[req.Name]
	s.processMapLock.Unlock()
	if !ok {
		msg := "Unknown process"
		return &model.SupervisorError{Kind: model.NoSuchEntity, Message: &msg}
	}
	if process.control == nil {
		msg := "Process has no control channel"
		return &model.SupervisorError{Kind: model.InvalidState, Message: &msg}
	}

	line, err := json.Marshal(req.Message)
	if err != nil {
		msg := err.Error()
		return &model.SupervisorError{Kind: model.Serde, Message: &msg}
	}
	line = append(line, '\n')

	if !req.Deadline.IsZero() {
		if err := process.control.SetWriteDeadline(req.Deadline); err != nil {
			return err
		}
	}
	_, err = process.control.Write(line)
	return err
}

func kill(p process, name string, deadline time.Time) error {
	// kill should report success if the process terminated by the time
	// supervisor receives the request.
	select {
	// if this case is selected, the channel is closed,
	// which means the process is terminated
	case <-p.termination:
		log.Debugf("Process %s already terminated.", name)
		return nil
	default:
		log.Infof("Sending SIGKILL to %s(%d).", name, p.pid)
	}

	if !deadline.IsZero() && time.Now().After(deadline) {
		return fmt.Errorf("Timed out while trying to SIGKILL %s", name)
	}

	pgid, err := syscall.Getpgid(p.pid)

	if err == nil {
		// Negative pid sends signal to all in process group
		syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		syscall.Kill(p.pid, syscall.SIGKILL)
	}

	// the nil channel blocks forever
	var timer <-chan time.Time
	if !deadline.IsZero() {
		timer = time.After(time.Until(deadline))
	}

	// block until the (main) process exits
	// or the deadline passes
	select {
	case <-p.termination:
		return nil
	case <-timer:
		return fmt.Errorf("Timed out while trying to SIGKILL %s", name)
	}
}

// Kill sends SIGKILL to the whole process group and blocks until the main
// process exited or the deadline passed.
func (s *LocalSupervisor) Kill(ctx context.Context, req *model.KillRequest) error {
	s.processMapLock.Lock()
	process, ok := s.processMap[req.Name]
	s.processMapLock.Unlock()
	if !ok {
		msg := "Unknown process"
		return &model.SupervisorError{
			Kind:    model.NoSuchEntity,
			Message: &msg,
		}
	}

	return kill(process, req.Name, req.Deadline)
}

// Stop kills every process still running.
func (s *LocalSupervisor) Stop(ctx context.Context, req *model.StopRequest) error {
	s.processMapLock.Lock()
	processes := make(map[string]process, len(s.processMap))
	for name, proc := range s.processMap {
		processes[name] = proc
	}
	s.processMapLock.Unlock()

	var g errgroup.Group
	for name, proc := range processes {
		name, proc := name, proc
		g.Go(func() error {
			log.Debugf("Killing %s", name)
			return kill(proc, name, req.Deadline)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("Shutdown failed: %s", err)
	}
	return nil
}

func (s *LocalSupervisor) Events() <-chan model.Event {
	return s.events
}
