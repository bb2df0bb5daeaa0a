package process

import (
	"context"
	"os"

	"github.com/mitchellh/go-ps"

	"github.com/telemacy/bridge-packager/internal/logger"
)

// TerminateByName kills every running process whose executable name matches
// one of the given names, skipping the current process. A previously built
// bridge or tracker left running would hold locks on the output tree the
// pipeline is about to remove.
func TerminateByName(ctx context.Context, names ...string) error {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, proc := range processList {
		if proc.Pid() == thisProcessID {
			continue
		}

		if _, found := wanted[proc.Executable()]; !found {
			continue
		}

		running, err := os.FindProcess(proc.Pid())
		if err != nil {
			return err
		}

		if err = running.Kill(); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Terminated running instance",
			"name", proc.Executable(), "pid", proc.Pid())
	}

	return nil
}
