package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bytemomo/oarfish/cmd/oarfish/commands"
	"bytemomo/oarfish/internal/plugins"

	"github.com/sirupsen/logrus"
)

// interruptGrace is how long in-flight work gets to unwind after an
// interrupt before the process exits anyway.
const interruptGrace = 2 * time.Second

func main() {
	plugins.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		time.Sleep(interruptGrace)
		exitWith(0, "Interrupted by user")
	}()

	err := commands.NewRootCommand().ExecuteContext(ctx)
	switch {
	case ctx.Err() != nil:
		exitWith(0, "Interrupted by user")
	case err != nil:
		logrus.WithError(err).Debug("command failed")
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			exitWith(exitErr.Code, "")
		}
		exitWith(1, "")
	}
}

func exitWith(code int, msg string) {
	if msg != "" {
		fmt.Fprintln(os.Stderr, "\n"+msg)
	}
	os.Exit(code)
}
