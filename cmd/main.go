package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"eventreview/internal/backend"
	"eventreview/internal/caldav"
	"eventreview/internal/config"
	"eventreview/internal/dashboard"
	"eventreview/internal/ics"
	"eventreview/internal/logging"
	"eventreview/internal/models"
	"eventreview/internal/server"
	"eventreview/internal/websocket"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "eventreview",
		Usage: "Review, annotate and publish events from the event review backend.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "eventreview.yaml", Usage: "Path to the YAML config file.", EnvVars: []string{"EVENTREVIEW_CONFIG"}},
			&cli.StringFlag{Name: "backend-url", Usage: "Override the backend URL."},
			&cli.StringFlag{Name: "timezone", Usage: "Override the timezone used for dates."},
		},
		Commands: []*cli.Command{
			listCommand(),
			statsCommand(),
			statusCommand("approve", "Approve an event occurrence.", models.StatusApproved),
			statusCommand("reject", "Reject an event occurrence.", models.StatusRejected),
			statusCommand("pending", "Mark every occurrence of an event as pending review.", models.StatusPending),
			setOrgCommand(),
			setTypeCommand(),
			setLocationCommand(),
			exportCommand(),
			publishCommand(),
			serveCommand(),
			initConfigCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// app holds what every command needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	manager *dashboard.EventManager
}

// setup loads configuration and builds the backend client. The view-model
// is created by newManager once the presenter is known.
func setup(c *cli.Context) (*app, *backend.Client, *time.Location, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	if v := c.String("backend-url"); v != "" {
		cfg.BackendURL = strings.TrimSuffix(v, "/")
	}
	if v := c.String("timezone"); v != "" {
		cfg.Timezone = v
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := backend.NewClient(logger, cfg.BackendURL, cfg.APIToken)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return &app{cfg: cfg, logger: logger}, client, loc, nil
}

// newApp is setup plus a view-model that logs its notifications.
func newApp(c *cli.Context) (*app, error) {
	a, client, loc, err := setup(c)
	if err != nil {
		return nil, err
	}
	if err := a.newManager(client, loc, dashboard.NewLogPresenter(a.logger)); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) newManager(client *backend.Client, loc *time.Location, presenter dashboard.Presenter) error {
	a.manager = dashboard.NewEventManager(a.logger, client, presenter, dashboard.Options{Location: loc})

	filter, err := models.ParseStatusFilter(a.cfg.StatusFilter)
	if err != nil {
		return fmt.Errorf("invalid status_filter in config: %w", err)
	}
	a.manager.SetStatusFilter(filter)
	a.manager.SetHideSingleEvents(a.cfg.HideSingleEvents)
	return nil
}

// applyViewFlags overrides the configured filter with --status and --hide-single.
func (a *app) applyViewFlags(c *cli.Context) error {
	if c.IsSet("status") {
		filter, err := models.ParseStatusFilter(c.String("status"))
		if err != nil {
			return err
		}
		a.manager.SetStatusFilter(filter)
	}
	if c.IsSet("hide-single") {
		a.manager.SetHideSingleEvents(c.Bool("hide-single"))
	}
	return nil
}

func viewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "status", Usage: "Only show events with this status: all, pending, approved or rejected."},
		&cli.BoolFlag{Name: "hide-single", Usage: "Hide dates that have exactly one event."},
	}
}

func occurrenceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "recurrence-id", Aliases: []string{"r"}, Usage: "Target one occurrence of a recurring event."},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List events grouped by date, nearest dates first.",
		Flags: viewFlags(),
		Action: func(c *cli.Context) error {
			a, err := newApp(c)
			if err != nil {
				return err
			}
			if err := a.applyViewFlags(c); err != nil {
				return err
			}
			if err := a.manager.Load(c.Context); err != nil {
				return err
			}
			printGroups(c.App.Writer, a.manager)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print the backend's event statistics.",
		Action: func(c *cli.Context) error {
			a, err := newApp(c)
			if err != nil {
				return err
			}
			if err := a.manager.LoadStats(c.Context); err != nil {
				return err
			}
			stats := a.manager.Stats()
			keys := make([]string, 0, len(stats))
			for k := range stats {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(c.App.Writer, "%s: %v\n", k, stats[k])
			}
			return nil
		},
	}
}

func statusCommand(name, usage string, status models.ReviewStatus) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "UID",
		Flags:     occurrenceFlags(),
		Action: func(c *cli.Context) error {
			uid, err := requireArgs(c, 1)
			if err != nil {
				return err
			}
			a, err := newApp(c)
			if err != nil {
				return err
			}
			if err := a.manager.Load(c.Context); err != nil {
				return err
			}
			return a.manager.UpdateEventStatus(c.Context, uid[0], c.String("recurrence-id"), status)
		},
	}
}

func setOrgCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-org",
		Usage:     "Set the organizing group of an event occurrence.",
		ArgsUsage: "UID ORGANIZATION",
		Flags:     occurrenceFlags(),
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 2)
			if err != nil {
				return err
			}
			a, err := newApp(c)
			if err != nil {
				return err
			}
			if err := a.manager.Load(c.Context); err != nil {
				return err
			}
			return a.manager.UpdateEventOrganization(c.Context, args[0], c.String("recurrence-id"), args[1])
		},
	}
}

func setTypeCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-type",
		Usage:     "Set the type of every occurrence of an event.",
		ArgsUsage: "UID TYPE",
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 2)
			if err != nil {
				return err
			}
			a, err := newApp(c)
			if err != nil {
				return err
			}
			if err := a.manager.Load(c.Context); err != nil {
				return err
			}
			return a.manager.UpdateEventType(c.Context, args[0], "", args[1])
		},
	}
}

func setLocationCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-location",
		Usage:     "Override the displayed location of an occurrence. An empty LOCATION removes the override.",
		ArgsUsage: "UID [LOCATION]",
		Flags:     occurrenceFlags(),
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 1)
			if err != nil {
				return err
			}
			a, err := newApp(c)
			if err != nil {
				return err
			}
			if err := a.manager.Load(c.Context); err != nil {
				return err
			}
			return a.manager.SaveLocation(c.Context, args[0], c.String("recurrence-id"), c.Args().Get(1))
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the filtered events as an iCalendar file.",
		Flags: append(viewFlags(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "-", Usage: "Output file, or - for stdout."},
			&cli.StringFlag{Name: "prodid", Value: ics.DefaultProductID, Usage: "PRODID of the generated calendar."},
		),
		Action: func(c *cli.Context) error {
			a, err := newApp(c)
			if err != nil {
				return err
			}
			if err := a.applyViewFlags(c); err != nil {
				return err
			}
			if err := a.manager.Load(c.Context); err != nil {
				return err
			}

			var events []models.Event
			for _, g := range a.manager.GroupedEvents() {
				events = append(events, g.Events...)
			}

			var w io.Writer = c.App.Writer
			if out := c.String("out"); out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := ics.Encode(w, events, c.String("prodid")); err != nil {
				return err
			}
			a.logger.Info("Exported events", "count", len(events), "out", c.String("out"))
			return nil
		},
	}
}

func initConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "init-config",
		Usage: "Write a config file with the current settings and defaults.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing config file."},
		},
		Action: func(c *cli.Context) error {
			path := c.String("config")
			if err := initConfig(path, c.Bool("force")); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
			return nil
		},
	}
}

// initConfig saves the effective configuration for path back to path.
// Environment overrides are included, so secrets set there end up on disk.
func initConfig(path string, force bool) error {
	if path == "" {
		return cli.Exit("--config must name a file", 2)
	}
	if _, err := os.Stat(path); err == nil && !force {
		return cli.Exit(fmt.Sprintf("%s already exists, pass --force to overwrite", path), 1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	return config.Save(path, cfg)
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Publish approved events to the configured CalDAV calendar.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be published without making changes."},
			&cli.IntFlag{Name: "watch", Value: 300, Usage: "Publish every N seconds instead of once."},
		},
		Action: func(c *cli.Context) error {
			var interval time.Duration
			if c.IsSet("watch") {
				var err error
				if interval, err = watchInterval(c.Int("watch")); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(c)
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				a.logger.Info("Performing a dry run. No changes will be made.")
			}

			cd := a.cfg.CalDAV
			store, calendarPath, err := caldav.Connect(ctx, a.logger, cd.URL, cd.Username, cd.Password, cd.Calendar)
			if err != nil {
				return fmt.Errorf("failed to connect to caldav: %w", err)
			}
			p, err := caldav.NewPublisher(a.logger, store, calendarPath, cd.StateFile, c.Bool("dry-run"))
			if err != nil {
				return err
			}

			cycle := func(ctx context.Context) error {
				if err := a.manager.Load(ctx); err != nil {
					return err
				}
				_, err := p.Publish(ctx, a.manager.Events())
				return err
			}

			if interval == 0 {
				return cycle(ctx)
			}
			a.logger.Info("Starting watcher.", "interval", interval)
			runWatch(ctx, a.logger, interval, cycle)
			return nil
		},
	}
}

// watchInterval validates --watch.
func watchInterval(seconds int) (time.Duration, error) {
	if seconds <= 0 {
		return 0, cli.Exit(fmt.Sprintf("--watch must be a positive number of seconds, got %d", seconds), 2)
	}
	return time.Duration(seconds) * time.Second, nil
}

// runWatch runs cycle immediately and then every interval until ctx is done.
// A failed cycle is logged and the loop keeps going.
func runWatch(ctx context.Context, logger *slog.Logger, interval time.Duration, cycle func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := cycle(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Publish cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local review dashboard API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Override the listen address."},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, client, loc, err := setup(c)
			if err != nil {
				return err
			}

			hub := websocket.NewHub(a.logger)
			go hub.Run(ctx)
			wsPresenter := websocket.NewPresenter(hub, a.logger)

			presenter := dashboard.MultiPresenter{dashboard.NewLogPresenter(a.logger), wsPresenter}
			if err := a.newManager(client, loc, presenter); err != nil {
				return err
			}
			srv := server.New(a.logger, a.manager, hub, wsPresenter)

			if err := srv.Refresh(ctx); err != nil {
				a.logger.Warn("Initial load failed, serving empty dashboard", "error", err)
			}

			scheduler, err := server.NewScheduler(a.logger, a.cfg.Refresh, srv.Refresh)
			if err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()

			addr := a.cfg.Listen
			if v := c.String("listen"); v != "" {
				addr = v
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}
}

func printGroups(w io.Writer, m *dashboard.EventManager) {
	groups := m.GroupedEvents()
	if len(groups) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	today := m.Today()
	for _, g := range groups {
		fmt.Fprintf(w, "%s (%d)\n", dashboard.FormatDate(g.Date, today), len(g.Events))
		for _, e := range g.Events {
			line := fmt.Sprintf("  %8s  [%s] %s", dashboard.FormatTime(e.StartTime, m.Location()), e.Status, e.Summary)
			if e.Organization != "" {
				line += " | " + e.Organization
			}
			if e.Type != "" {
				line += " (" + e.Type + ")"
			}
			if loc := e.DisplayLocation(); loc != "" {
				line += " @ " + loc
			}
			fmt.Fprintln(w, line)
			fmt.Fprintf(w, "            uid=%s", e.UID)
			if e.RecurrenceID != "" {
				fmt.Fprintf(w, " recurrence-id=%s", e.RecurrenceID)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintf(w, "\n%d of %d events shown\n", m.VisibleEvents(), m.TotalEvents())
}

func requireArgs(c *cli.Context, n int) ([]string, error) {
	if c.NArg() < n {
		return nil, cli.Exit(fmt.Sprintf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage), 2)
	}
	return c.Args().Slice(), nil
}
