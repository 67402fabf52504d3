package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	chatter "github.com/putto11262002/roomchat/app"
	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/settings"
	"github.com/putto11262002/roomchat/widget"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a headless widget that renders a room to an HTML file",
	Long: `Run a headless widget that keeps an HTML page of the current room up to date.
Lines read from stdin are sent to the current room. Type /help for the commands.`,
	RunE: runWatch,
}

var watchFlags struct {
	api       string
	rooms     []int
	room      int
	username  string
	userType  string
	out       string
	dataDir   string
	exportDir string
	poll      time.Duration
	push      bool
	logLevel  string
}

const defaultAPI = "http://localhost:8080/api/v0/chats"

func init() {
	flags := watchCmd.Flags()
	flags.StringVar(&watchFlags.api, "api", defaultAPI, "base URL of the chat rooms")
	flags.IntSliceVar(&watchFlags.rooms, "rooms", []int{1, 2, 3, 4}, "rooms offered by the room selector")
	flags.IntVar(&watchFlags.room, "room", -1, "room selected on start (negative for none)")
	flags.StringVar(&watchFlags.username, "username", widget.DefaultUsername, "username used when the settings carry none")
	flags.StringVar(&watchFlags.userType, "user-type", string(core.UserTypeUser), "user type of sent messages")
	flags.StringVarP(&watchFlags.out, "out", "o", "roomchat.html", "HTML file the widget is rendered to")
	flags.StringVar(&watchFlags.dataDir, "data", defaultDataDir(), "directory of the local settings store")
	flags.StringVar(&watchFlags.exportDir, "export-dir", ".", "directory room exports are written to")
	flags.DurationVar(&watchFlags.poll, "poll", widget.DefaultPollInterval, "interval between two reads of the current room")
	flags.BoolVar(&watchFlags.push, "push", false, "re-read the room when the server pushes an update")
	flags.StringVar(&watchFlags.logLevel, "log-level", "info", "debug, info, warn or error")
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".roomchat"
	}
	return filepath.Join(dir, "roomchat")
}

func runWatch(cmd *cobra.Command, args []string) error {
	userType := core.UserType(watchFlags.userType)
	if !userType.Valid() {
		return fmt.Errorf("invalid user type %q", watchFlags.userType)
	}
	logger, err := newLogger(watchFlags.logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	renderer, err := widget.NewRenderer()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	store, err := settings.OpenPebbleStore(watchFlags.dataDir, settings.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open settings store: %w", err)
	}
	defer store.Close()

	view := widget.NewFileView(watchFlags.out, watchFlags.rooms, renderer, logger)
	client := widget.NewClient(watchFlags.api, widget.WithClientLogger(logger))
	ctrl := widget.NewController(widget.Config{
		Username:     watchFlags.username,
		Rooms:        watchFlags.rooms,
		PollInterval: watchFlags.poll,
		Watch:        watchFlags.push,
		ExportDir:    watchFlags.exportDir,
	}, client, renderer, view,
		widget.WithLogger(logger),
		widget.WithNotifier(widget.NewTerminalNotifier(cmd.ErrOrStderr(), logger)))

	manager := settings.NewManager(store, ctrl, logger)
	ctrl.UseSettings(manager)
	manager.Load(ctx)

	ctrl.Start(ctx)
	if watchFlags.room >= 0 {
		ctrl.SelectRoom(ctx, watchFlags.room)
	}
	logger.Info("widget running", "out", watchFlags.out, "api", watchFlags.api)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		shell := widget.NewShell(ctrl, manager, cmd.OutOrStdout(), userType)
		return shell.Run(ctx, cmd.InOrStdin())
	})
	g.Go(func() error {
		ctrl.Wait()
		return nil
	})
	return g.Wait()
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return chatter.NewLogger(os.Stderr, l), nil
}
