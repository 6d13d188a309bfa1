package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/alkime/whistle/internal/audio"
	"github.com/alkime/whistle/internal/clipstore"
	"github.com/alkime/whistle/internal/config"
	"github.com/alkime/whistle/internal/logger"
	"github.com/alkime/whistle/internal/schedule"
	"github.com/alkime/whistle/internal/session"
	"github.com/alkime/whistle/internal/tui"
	"github.com/alkime/whistle/pkg/collections"
	"github.com/alkime/whistle/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// CLI defines the whistle command structure.
type CLI struct {
	Globals

	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Record and play back the clip"`

	Devices DevicesCmd `cmd:"" help:"List available audio devices"`
	Clip    ClipCmd    `cmd:"" help:"Show the recorded clip"`
	Discard DiscardCmd `cmd:"" help:"Remove the recorded clip"`
}

// Globals are flags shared by every command.
type Globals struct {
	Dir string `flag:"" optional:"" help:"Clip directory (overrides WHISTLE_DIR)"`
}

// store loads the configuration and resolves the clip store.
func (g *Globals) store() (*config.Config, *clipstore.Store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	dir := cmp.Or(g.Dir, cfg.Dir)
	if dir == "" {
		if dir, err = clipstore.DefaultDir(); err != nil {
			return nil, nil, err
		}
	}

	store, err := clipstore.New(dir, cfg.ClipName)
	if err != nil {
		return nil, nil, err
	}

	return cfg, store, nil
}

// TUICmd is the default command that runs the recording screen.
type TUICmd struct {
	NoAutoStart bool `flag:"" help:"Wait for a key press before recording"`
}

// Run executes the TUI command.
func (c *TUICmd) Run(g *Globals) error {
	cfg, store, err := g.store()
	if err != nil {
		return err
	}

	if err := store.Prep(); err != nil {
		return err
	}

	// the screen owns stdout, so logs go to a file next to the clip
	logFile := logger.RotatingFile(store.FilePath("whistle.log"), cfg.LogMaxSizeMB)
	defer logFile.Close()

	log := logger.SetupLogger(cfg, logFile)

	captureConf, err := audio.CaptureConfig(session.ClipProfile)
	if err != nil {
		return err
	}

	input := audio.NewFileInput(nil, log)
	ticker := schedule.NewTicker()

	model, err := tui.New(tui.Options{
		Session: session.Config{
			ClipPath:     store.Path(),
			TickInterval: cfg.TickInterval,
			AutoStart:    cfg.AutoStart && !c.NoAutoStart,
		},
		Input:     input,
		Output:    audio.NewFileOutput(nil, nil, log),
		Scheduler: ticker,
		Access:    audio.NewMicrophoneAccess(captureConf, nil, log),
		Levels:    input.Levels(),
		Bytes:     uictl.DialFunc[int64](input.BytesWritten),
		Logger:    log,
	})
	if err != nil {
		return err
	}

	log.Info("starting session", "clip", store.Path())

	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}

	// quitting closes the session, which cancels the playback tick and
	// abandons any recording in progress
	ticker.Wait()
	input.Wait()

	if clip, ok := model.Saved(); ok {
		fmt.Println(clip)
	}

	return nil
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct {
	DefaultOnly bool `flag:"" help:"Only list the default devices"`
}

// Run executes the devices command.
func (d *DevicesCmd) Run() error {
	slog.Info("Enumerating audio devices...")

	capture, playback, err := audio.EnumerateDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	groups := []struct {
		kind    string
		devices []audio.Info
	}{
		{kind: "capture", devices: capture},
		{kind: "playback", devices: playback},
	}

	for _, group := range groups {
		devices := group.devices
		if d.DefaultOnly {
			devices = collections.Filter(devices, func(i audio.Info) bool { return i.IsDefault })
		}

		for _, dev := range devices {
			slog.Info("Audio Device",
				"kind", group.kind,
				"name", dev.Name,
				"isDefault", dev.IsDefault,
				"formats", dev.Formats,
			)
		}
	}

	return nil
}

// ClipCmd prints the clip location and duration.
type ClipCmd struct{}

// Run executes the clip command.
func (c *ClipCmd) Run(g *Globals) error {
	_, store, err := g.store()
	if err != nil {
		return err
	}

	info, err := store.Info()
	if errors.Is(err, clipstore.ErrNoClip) {
		slog.Info("No clip recorded", "location", store.Path())
		return nil
	}

	if err != nil {
		return err
	}

	slog.Info("Clip",
		"location", info.Location,
		"duration", info.Duration,
		"bytes", info.Bytes,
	)

	return nil
}

// DiscardCmd removes the clip.
type DiscardCmd struct{}

// Run executes the discard command.
func (c *DiscardCmd) Run(g *Globals) error {
	_, store, err := g.store()
	if err != nil {
		return err
	}

	if err := store.Discard(); err != nil {
		return err
	}

	slog.Info("Clip discarded", "location", store.Path())

	return nil
}

func main() {
	logger.SetupCLILogger()

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("whistle"),
		kong.Description("Record a clip, then play it back."),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
