// Command votectl is the command line client for the election service: voter
// registration and status, admin review of pending voters, and the help assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"

	"election-service/internal/apiclient"
	"election-service/internal/session"
	"election-service/internal/util"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, http.DefaultClient)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, httpClient *http.Client) int {
	opts, rest, err := ParseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		if errors.Is(err, errUsage) {
			return exitUsage
		}
		return report(stderr, err)
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		io.WriteString(stderr, "unknown command "+rest[0]+"\n")
		return exitUsage
	}

	logger := util.NewWriterLogger(opts.LogLevel, stderr)
	defer logger.Sync()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	store := session.NewFileStore(opts.SessionPath)
	sess, err := store.Load(ctx)
	if err != nil {
		return report(stderr, err)
	}

	a := &app{
		opts:   opts,
		api:    apiclient.New(opts.API, httpClient),
		store:  store,
		sess:   sess,
		stdout: stdout,
		stderr: stderr,
		logger: logger,
	}
	if err := cmd(ctx, a, rest[1:]); err != nil {
		return report(stderr, err)
	}
	return exitOK
}
