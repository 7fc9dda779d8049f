package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/jrsteele09/syllabus-tracker/catalog"
	"github.com/jrsteele09/syllabus-tracker/dashboard"
	"github.com/jrsteele09/syllabus-tracker/kvstore"
	"github.com/jrsteele09/syllabus-tracker/refresh"
	"github.com/jrsteele09/syllabus-tracker/roster"
	"github.com/jrsteele09/syllabus-tracker/sessions"
	"github.com/pkg/errors"
)

type teacherView struct {
	sessions *sessions.Manager
	store    kvstore.Repo
	dash     *dashboard.Store
}

func (v *teacherView) Close() {
	v.dash.Close()
	v.sessions.Stop()
}

// teacherDashboard restores the teacher sign-in and builds the dashboard over the teacher profile.
func (cli *commandLine) teacherDashboard(ctx context.Context) (*teacherView, error) {
	mgr, store, err := cli.teacherSession(cli.confirmer)
	if err != nil {
		return nil, err
	}
	if mgr.Restore(ctx) == nil {
		return nil, errSignedOut
	}
	cat, err := catalog.New(cli.api, store, catalog.WithLogger(cli.logger))
	if err != nil {
		mgr.Stop()
		return nil, err
	}
	dash, err := dashboard.New(ctx, cli.api, cat, store,
		dashboard.WithLogger(cli.logger),
		dashboard.WithSearchDebounce(cli.clock, cli.cfg.GetSearchDebounce()),
	)
	if err != nil {
		mgr.Stop()
		return nil, err
	}
	return &teacherView{sessions: mgr, store: store, dash: dash}, nil
}

func (cli *commandLine) dashboard(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("dashboard")
	search := fs.String("search", "", "filter by student name, email or syllabus")
	bucket := fs.String("bucket", roster.BucketAll, "progress range: all, 0-25, 25-50, 50-75 or 75-100")
	syllabusID := fs.String("syllabus", roster.SyllabusAll, "syllabus id, or all")
	tab := fs.String("tab", dashboard.TabDashboard, "view: dashboard, students, analytics or backups")
	watch := fs.Bool("watch", false, "refresh every AUTO_REFRESH_INTERVAL until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, _, ok := roster.ParseBucket(*bucket); !ok && *bucket != roster.BucketAll {
		fmt.Fprintf(cli.out, "unknown progress range %q\n", *bucket)
		return errHelp
	}
	if !slices.Contains(dashboard.Tabs, *tab) {
		fmt.Fprintf(cli.out, "unknown tab %q\n", *tab)
		return errHelp
	}

	tv, err := cli.teacherDashboard(ctx)
	if err != nil {
		return err
	}
	defer tv.Close()

	// only flags given on this run overwrite the persisted view
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "search":
			tv.dash.SetSearch(ctx, *search)
		case "bucket":
			tv.dash.SetBucket(ctx, *bucket)
		case "syllabus":
			tv.dash.SetSyllabus(ctx, *syllabusID)
		case "tab":
			tv.dash.SetTab(ctx, *tab)
		}
	})

	refreshed := make(chan struct{}, 1)
	reload := func(ctx context.Context) error {
		if err := tv.dash.Reload(ctx); err != nil {
			return err
		}
		select {
		case refreshed <- struct{}{}:
		default:
		}
		return nil
	}
	coord, err := refresh.NewCoordinator(ctx, reload, tv.store, cli.cfg,
		refresh.WithClock(cli.clock),
		refresh.WithNotifier(tv.dash),
		refresh.WithLogger(cli.logger),
	)
	if err != nil {
		return err
	}
	defer coord.Stop()

	_, reloadErr := coord.Manual(ctx)
	cli.renderTab(ctx, tv.dash, coord)
	if reloadErr != nil || !*watch {
		return reloadErr
	}

	select {
	case <-refreshed:
	default:
	}
	coord.SetAuto(true)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-refreshed:
			cli.renderTab(ctx, tv.dash, coord)
		}
	}
}

func (cli *commandLine) renderTab(ctx context.Context, dash *dashboard.Store, coord *refresh.Coordinator) {
	renderDashboard(cli.out, dash, coord.LastRefresh())
	if dash.Tab() != dashboard.TabBackups {
		return
	}
	list, err := dash.Backups(ctx)
	if err != nil {
		fmt.Fprintf(cli.out, "! %s\n", err)
		return
	}
	renderBackups(cli.out, list)
}

func (cli *commandLine) assign(ctx context.Context, args []string, remove bool) error {
	name := "assign"
	if remove {
		name = "remove"
	}
	fs := cli.newFlagSet(name)
	email := fs.String("email", "", "student email")
	syllabusID := fs.String("syllabus", "", "syllabus id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tv, err := cli.teacherDashboard(ctx)
	if err != nil {
		return err
	}
	defer tv.Close()

	write := tv.dash.Assign
	if remove {
		write = tv.dash.Remove
	}
	if err := write(ctx, *email, *syllabusID); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, tv.dash.Status().Message)
	return nil
}

func (cli *commandLine) export(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("export")
	output := fs.String("o", "", "output file (default teacher_dashboard_progress_<date>.csv)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tv, err := cli.teacherDashboard(ctx)
	if err != nil {
		return err
	}
	defer tv.Close()

	if err := tv.dash.Reload(ctx); err != nil {
		return err
	}
	path := *output
	if path == "" {
		path = roster.ExportFileName(cli.clock.Now())
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "[export]")
	}
	if err := tv.dash.Export(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "[export]")
	}
	fmt.Fprintf(cli.out, "%s %d rows written to %s\n", tv.dash.Status().Message, len(tv.dash.Displayed()), path)
	return nil
}

func (cli *commandLine) backups(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("backups")
	create := fs.String("create", "", "create a backup with this name")
	restore := fs.String("restore", "", "replace all backend data with this backup")
	remove := fs.String("delete", "", "delete this backup")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tv, err := cli.teacherDashboard(ctx)
	if err != nil {
		return err
	}
	defer tv.Close()

	confirmed := func(prompt string) (bool, error) {
		if *yes {
			return true, nil
		}
		return cli.confirmer.Confirm(ctx, prompt)
	}

	switch {
	case *create != "":
		err = tv.dash.CreateBackup(ctx, *create)
	case *restore != "":
		ok, cerr := confirmed(fmt.Sprintf("Restore backup %q? All current data will be replaced.", *restore))
		if cerr != nil || !ok {
			return cerr
		}
		err = tv.dash.RestoreBackup(ctx, *restore)
	case *remove != "":
		ok, cerr := confirmed(fmt.Sprintf("Delete backup %q?", *remove))
		if cerr != nil || !ok {
			return cerr
		}
		err = tv.dash.DeleteBackup(ctx, *remove)
	}
	if err != nil {
		return err
	}
	if msg := tv.dash.Status().Message; msg != "" {
		fmt.Fprintln(cli.out, msg)
	}

	list, err := tv.dash.Backups(ctx)
	if err != nil {
		return err
	}
	renderBackups(cli.out, list)
	return nil
}
