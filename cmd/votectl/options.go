package main

import (
	"errors"
	"flag"
	"io"
	"os"
	"strings"
	"time"

	"election-service/internal/session"
)

const defaultAPI = "http://localhost:8000"

// Options are the global flags shared by every command.
type Options struct {
	API         string
	SessionPath string
	Timeout     time.Duration
	LogLevel    string
	JSON        bool
}

// ParseOptions reads global flags, falling back to VOTECTL_API and VOTECTL_SESSION.
// The remaining arguments are the command and its own flags.
func ParseOptions(args []string, stderr io.Writer) (Options, []string, error) {
	var opts Options

	fs := flag.NewFlagSet("votectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.API, "api", "", "Election service base URL (or VOTECTL_API)")
	fs.StringVar(&opts.SessionPath, "session", "", "Session file (or VOTECTL_SESSION)")
	fs.DurationVar(&opts.Timeout, "timeout", 0, "Per-command timeout, 0 for none")
	fs.StringVar(&opts.LogLevel, "log-level", "warn", "Log level")
	fs.BoolVar(&opts.JSON, "json", false, "Print JSON instead of tables")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return Options{}, nil, err
	}

	if opts.API == "" {
		opts.API = os.Getenv("VOTECTL_API")
	}
	if opts.API == "" {
		opts.API = defaultAPI
	}
	if !strings.HasPrefix(opts.API, "http://") && !strings.HasPrefix(opts.API, "https://") {
		return Options{}, nil, errors.New("--api must be an http:// or https:// URL")
	}

	if opts.SessionPath == "" {
		opts.SessionPath = os.Getenv("VOTECTL_SESSION")
	}
	if opts.SessionPath == "" {
		path, err := session.DefaultPath()
		if err != nil {
			return Options{}, nil, err
		}
		opts.SessionPath = path
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return Options{}, nil, errUsage
	}
	return opts, fs.Args(), nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	io.WriteString(w, `usage: votectl [flags] <command> [args]

commands:
  register  --username U --email E --password P --age N [--gender G] [--region R]
  login     --as admin|voter --username U [--password P]   (or VOTECTL_PASSWORD)
  refresh   --as admin|voter
  logout    --as admin|voter
  status                      own verification status (voter)
  voters    [--status all|pending|verified|rejected] [--search TEXT]
  verify    VOTER_ID          (admin)
  reject    VOTER_ID          (admin)
  ask       QUESTION          help assistant

flags:
`)
	fs.PrintDefaults()
}
