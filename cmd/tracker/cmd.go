package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/jrsteele09/syllabus-tracker/catalog"
	"github.com/jrsteele09/syllabus-tracker/clock"
	"github.com/jrsteele09/syllabus-tracker/identity"
	"github.com/jrsteele09/syllabus-tracker/internal/config"
	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/kvstore"
	"github.com/jrsteele09/syllabus-tracker/progress"
	"github.com/jrsteele09/syllabus-tracker/sessions"
	"github.com/jrsteele09/syllabus-tracker/tracker"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	errHelp      = errors.New("help provided")
	errSignedOut = errors.Wrap(apperrors.ErrSessionExpired, "not signed in, run login first")
)

// Storage profiles keep the student and teacher state apart.
const (
	studentProfile = "student"
	teacherProfile = "teacher"
)

// accessTokenVar may carry the provider access token instead of -token.
const accessTokenVar = "TRACKER_ACCESS_TOKEN"

type commandLine struct {
	cfg       config.Config
	api       *trackerapi.Client
	auth      identity.Authenticator
	openStore func(profile string) (kvstore.Repo, error)
	clock     clock.Clock
	out       io.Writer
	confirmer sessions.Confirmer
	logger    zerolog.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -token TOKEN [-teacher]          - sign in with an identity provider access token")
	fmt.Fprintln(cli.out, "  status                                 - show the selected syllabus and your progress")
	fmt.Fprintln(cli.out, "  select -syllabus ID                    - switch to another assigned syllabus")
	fmt.Fprintln(cli.out, "  toggle -topic ID [-done=false]         - mark a topic complete or incomplete")
	fmt.Fprintln(cli.out, "  logout [-teacher] [-yes]               - sign out")
	fmt.Fprintln(cli.out, "  dashboard [-search S] [-bucket B] [-syllabus ID] [-tab T] [-watch]")
	fmt.Fprintln(cli.out, "                                         - teacher roster, statistics and analytics")
	fmt.Fprintln(cli.out, "  assign -email EMAIL -syllabus ID       - assign a syllabus to a student")
	fmt.Fprintln(cli.out, "  remove -email EMAIL -syllabus ID       - remove a syllabus from a student")
	fmt.Fprintln(cli.out, "  export [-o FILE]                       - export the filtered roster as CSV")
	fmt.Fprintln(cli.out, "  backups [-create|-restore|-delete NAME] - list or manage backend backups")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "login":
		return cli.login(ctx, args[2:])
	case "status":
		return cli.status(ctx, args[2:])
	case "select":
		return cli.selectSyllabus(ctx, args[2:])
	case "toggle":
		return cli.toggle(ctx, args[2:])
	case "logout":
		return cli.logout(ctx, args[2:])
	case "dashboard":
		return cli.dashboard(ctx, args[2:])
	case "assign":
		return cli.assign(ctx, args[2:], false)
	case "remove":
		return cli.assign(ctx, args[2:], true)
	case "export":
		return cli.export(ctx, args[2:])
	case "backups":
		return cli.backups(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) sessionManager(store kvstore.Repo, key string, confirm sessions.Confirmer, hooks ...sessions.LoginHook) (*sessions.Manager, error) {
	options := []sessions.ManagerOption{
		sessions.WithClock(cli.clock),
		sessions.WithLogger(cli.logger),
		sessions.WithStorageKey(key),
		sessions.WithConfirmer(confirm),
	}
	for _, hook := range hooks {
		options = append(options, sessions.WithLoginHook(hook))
	}
	return sessions.NewManager(store, cli.auth, cli.cfg, options...)
}

func (cli *commandLine) studentApp(confirm sessions.Confirmer) (*tracker.App, error) {
	store, err := cli.openStore(studentProfile)
	if err != nil {
		return nil, err
	}
	mgr, err := cli.sessionManager(store, sessions.StudentSessionKey, confirm, tracker.RegistrationHook(cli.api, cli.logger))
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(cli.api, store, catalog.WithLogger(cli.logger))
	if err != nil {
		return nil, err
	}
	prog, err := progress.NewStore(cli.api, progress.WithLogger(cli.logger))
	if err != nil {
		return nil, err
	}
	return tracker.New(tracker.Services{Sessions: mgr, Catalog: cat, Progress: prog}, tracker.WithLogger(cli.logger))
}

// teacherSession opens the teacher profile and its session manager.
func (cli *commandLine) teacherSession(confirm sessions.Confirmer) (*sessions.Manager, kvstore.Repo, error) {
	store, err := cli.openStore(teacherProfile)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := cli.sessionManager(store, sessions.TeacherSessionKey, confirm)
	if err != nil {
		return nil, nil, err
	}
	return mgr, store, nil
}
