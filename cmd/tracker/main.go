package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/syllabus-tracker/clock"
	"github.com/jrsteele09/syllabus-tracker/identity"
	"github.com/jrsteele09/syllabus-tracker/internal/config"
	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/kvstore"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, apperrors.FriendlyMessage(err))
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	c := config.New()
	logger := newLogger(c)

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if term.IsTerminal(int(os.Stdout.Fd())) {
		displayAppname(c.GetAppName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := newCommandLine(ctx, c, logger, interactive)
	if err != nil {
		return err
	}
	return cli.run(ctx, args)
}

func newCommandLine(ctx context.Context, c config.Config, logger zerolog.Logger, interactive bool) (*commandLine, error) {
	api, err := trackerapi.New(c.GetAPIBaseURL(),
		trackerapi.WithTimeout(c.GetHTTPTimeout()),
		trackerapi.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	auth, err := identity.NewOIDCAuthenticator(ctx, c.GetUserInfoURL())
	if err != nil {
		return nil, err
	}
	return &commandLine{
		cfg:  c,
		api:  api,
		auth: auth,
		openStore: func(profile string) (kvstore.Repo, error) {
			return kvstore.New(c, profile)
		},
		clock:     clock.Real(),
		out:       os.Stdout,
		confirmer: newPromptConfirmer(os.Stdin, os.Stdout, interactive),
		logger:    logger,
	}, nil
}

func newLogger(c config.EnvConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || c.GetLogLevel() == "" {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if c.GetEnv() == "DEV" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
