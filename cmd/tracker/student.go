package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/syllabus-tracker/internal/config"
	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/sessions"
	"github.com/jrsteele09/syllabus-tracker/tracker"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

func (cli *commandLine) login(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("login")
	token := fs.String("token", config.GetEnv(accessTokenVar, ""), "access token issued by the identity provider")
	teacher := fs.Bool("teacher", false, "sign in to the teacher dashboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*token) == "" {
		fs.Usage()
		return errHelp
	}
	providerResponse := &oauth2.Token{AccessToken: strings.TrimSpace(*token), TokenType: "Bearer"}

	if *teacher {
		mgr, _, err := cli.teacherSession(cli.confirmer)
		if err != nil {
			return err
		}
		defer mgr.Stop()
		s, err := mgr.Login(ctx, providerResponse)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Signed in to the teacher dashboard as %s <%s>\n", s.User.Name, s.User.Email)
		return nil
	}

	app, err := cli.studentApp(cli.confirmer)
	if err != nil {
		return err
	}
	defer app.Close()
	if _, err := app.SignIn(ctx, providerResponse); err != nil && !errors.Is(err, apperrors.ErrLoad) {
		return err
	}
	renderStudent(cli.out, app.View(ctx))
	return nil
}

func (cli *commandLine) status(ctx context.Context, args []string) error {
	if err := cli.newFlagSet("status").Parse(args); err != nil {
		return err
	}
	return cli.withStudent(ctx, func(app *tracker.App) error { return nil })
}

func (cli *commandLine) selectSyllabus(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("select")
	syllabusID := fs.String("syllabus", "", "syllabus id, see status for the assigned ones")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *syllabusID == "" {
		fs.Usage()
		return errHelp
	}
	return cli.withStudent(ctx, func(app *tracker.App) error {
		return app.Select(ctx, *syllabusID)
	})
}

func (cli *commandLine) toggle(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("toggle")
	topicID := fs.String("topic", "", "topic id")
	done := fs.Bool("done", true, "mark the topic complete, -done=false to reopen it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *topicID == "" {
		fs.Usage()
		return errHelp
	}
	return cli.withStudent(ctx, func(app *tracker.App) error {
		return app.Toggle(ctx, *topicID, *done)
	})
}

// withStudent restores the student session, runs action and prints the resulting view.
func (cli *commandLine) withStudent(ctx context.Context, action func(app *tracker.App) error) error {
	app, err := cli.studentApp(cli.confirmer)
	if err != nil {
		return err
	}
	defer app.Close()

	s, err := app.Start(ctx)
	if err != nil && !errors.Is(err, apperrors.ErrLoad) {
		return err
	}
	if s == nil {
		return errSignedOut
	}
	actionErr := action(app)
	renderStudent(cli.out, app.View(ctx))
	return actionErr
}

func (cli *commandLine) logout(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("logout")
	teacher := fs.Bool("teacher", false, "sign out of the teacher dashboard")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	confirm := cli.confirmer
	if *yes {
		confirm = sessions.AlwaysConfirm
	}

	var done bool
	if *teacher {
		mgr, _, err := cli.teacherSession(confirm)
		if err != nil {
			return err
		}
		defer mgr.Stop()
		if done, err = mgr.Logout(ctx); err != nil {
			return err
		}
	} else {
		app, err := cli.studentApp(confirm)
		if err != nil {
			return err
		}
		defer app.Close()
		if done, err = app.SignOut(ctx); err != nil {
			return err
		}
	}

	if done {
		fmt.Fprintln(cli.out, "Signed out.")
	} else {
		fmt.Fprintln(cli.out, "Still signed in.")
	}
	return nil
}
