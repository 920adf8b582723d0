// Command yws drives the yabai window manager: it applies layouts to spaces
// and saves or restores workspace snapshots.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := newApp(os.Stdout)
	err := a.execute(ctx, newRootCmd(a))
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCodeForError(err))
	}
}
