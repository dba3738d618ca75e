package stream

import (
	"io"
	"os/exec"
)

// Process is a started external process.
type Process interface {
	Pid() int
	Wait() error
}

// Spawner starts external processes without waiting for them.
type Spawner interface {
	Spawn(name string, args []string) (Process, error)
}

// ExecSpawner starts processes with os/exec. Child output goes to Stdout and
// Stderr; nil discards it.
type ExecSpawner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Spawn implements Spawner.
func (s ExecSpawner) Spawn(name string, args []string) (Process, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p execProcess) Pid() int    { return p.cmd.Process.Pid }
func (p execProcess) Wait() error { return p.cmd.Wait() }
