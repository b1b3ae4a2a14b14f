package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
)

var (
	// Version is the application version. It is set using the -ldflags
	Version = "0.1.0"
	// BuildDate is the date the application was built. It is set using the -ldflags
	BuildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, parser, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Interrupts cancel the running command. Vote transactions already
	// broadcast are picked up again on the next start.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newCLIApp(ctx, cfg)
	if err = registerCommands(parser, app); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	parser.CommandHandler = app.commandHandler

	if _, err = parser.Parse(); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			return 0
		}
		// The parser has already printed the error.
		return 1
	}
	return 0
}
