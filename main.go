// turing-screen drives a 3.5" USB Turing smart screen (revision A).
//
// It polls system meters on their own intervals, draws them as text and
// bar widgets laid out by a YAML theme, and sends the changed areas of the
// frame to the screen over its serial link.
//
// Usage:
//
//	turing-screen [flags] [theme]
//
// Flags:
//
//	-config string    Path to configuration file (default: ~/.config/turing-screen/config.toml)
//	-port string      Serial device, or AUTO to find the screen by serial number
//	-brightness int   Screen brightness in percent (default: from config)
//	-refresh duration Screen refresh period (default: from config)
//	-image string     Display an image file once and exit
//	-preview          Render to the terminal through the device emulator
//	-list-ports       List serial ports and exit
//	-list-meters      List supported meters and exit
//	-verbose          Enable debug logging
//	-version          Print version and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gitlab.com/tinyland/lab/turing-screen/pkg/config"
	"gitlab.com/tinyland/lab/turing-screen/pkg/daemon"
	"gitlab.com/tinyland/lab/turing-screen/pkg/emulator"
	"gitlab.com/tinyland/lab/turing-screen/pkg/framebuffer"
	"gitlab.com/tinyland/lab/turing-screen/pkg/geometry"
	"gitlab.com/tinyland/lab/turing-screen/pkg/meter"
	"gitlab.com/tinyland/lab/turing-screen/pkg/preview"
	"gitlab.com/tinyland/lab/turing-screen/pkg/render"
	"gitlab.com/tinyland/lab/turing-screen/pkg/scheduler"
	"gitlab.com/tinyland/lab/turing-screen/pkg/screen"
	"gitlab.com/tinyland/lab/turing-screen/pkg/serialport"
	"gitlab.com/tinyland/lab/turing-screen/pkg/theme"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

type options struct {
	configPath string
	port       string
	brightness int
	refresh    time.Duration
	image      string
	preview    bool
	listPorts  bool
	listMeters bool
	verbose    bool
	theme      string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&o.port, "port", "", "Serial device, or AUTO to find the screen by serial number")
	flag.IntVar(&o.brightness, "brightness", -1, "Screen brightness in percent (default: from config)")
	flag.DurationVar(&o.refresh, "refresh", 0, "Screen refresh period (default: from config)")
	flag.StringVar(&o.image, "image", "", "Display an image file once and exit")
	flag.BoolVar(&o.preview, "preview", false, "Render to the terminal through the device emulator")
	flag.BoolVar(&o.listPorts, "list-ports", false, "List serial ports and exit")
	flag.BoolVar(&o.listMeters, "list-meters", false, "List supported meters and exit")
	flag.BoolVar(&o.verbose, "verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: turing-screen [flags] [theme]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("turing-screen %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}
	o.theme = flag.Arg(0)

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "turing-screen: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if o.listMeters {
		return printMeters(os.Stdout)
	}
	if o.listPorts {
		return printPorts(os.Stdout)
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Log, o.verbose)
	if err != nil {
		return err
	}
	defer closeLog.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Daemon.PIDFile != "" {
		if err := daemon.AcquirePID(cfg.Daemon.PIDFile); err != nil {
			return err
		}
		defer daemon.ReleasePID(cfg.Daemon.PIDFile)
	}

	th, err := theme.Load(cfg.Display.ThemeDir, cfg.Display.Theme)
	if err != nil {
		return err
	}
	if err := th.Validate(); err != nil {
		return fmt.Errorf("theme %s: %w", cfg.Display.Theme, err)
	}
	logger.Info("using theme", "name", th.Name, "dir", th.Dir)

	dev, err := openDevice(cfg, logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	scr := screen.NewRevA(dev.port, screen.WithLogger(logger))
	if err := setupScreen(scr, th, cfg.Device.BrightnessLevel()); err != nil {
		return err
	}

	if o.image != "" {
		return showImage(scr, o.image, dev)
	}
	return runDaemon(ctx, cfg, th, scr, dev, logger)
}

// loadConfig reads the configuration file and applies the command line.
func loadConfig(o options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if o.port != "" {
		cfg.Device.Port = o.port
	}
	if o.brightness >= 0 {
		cfg.Device.Brightness = o.brightness
	}
	if o.refresh > 0 {
		cfg.Display.Refresh.Duration = o.refresh
	}
	if o.preview {
		cfg.Preview.Enabled = true
	}
	if o.theme != "" {
		cfg.Display.Theme = o.theme
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// device is the transport under the screen driver: a serial port, or the
// emulator shown in the terminal.
type device struct {
	port    io.ReadWriter
	name    string
	closer  io.Closer
	emu     *emulator.Device
	preview *preview.Terminal
	logger  *slog.Logger
}

func openDevice(cfg *config.Config, logger *slog.Logger) (*device, error) {
	if cfg.Preview.Enabled {
		term, err := preview.New(os.Stdout, cfg.Preview.Protocol)
		if err != nil {
			return nil, fmt.Errorf("preview: %w", err)
		}
		emu := emulator.New()
		logger.Info("using emulator", "protocol", term.Protocol())
		return &device{port: emu, name: "emulator", emu: emu, preview: term, logger: logger}, nil
	}

	name, err := serialport.Resolve(cfg.Device.Port, cfg.Device.SerialNumber)
	if err != nil {
		return nil, err
	}
	p, err := serialport.Open(name, cfg.Device.BaudRate, cfg.Device.Timeout.Duration)
	if err != nil {
		return nil, err
	}
	logger.Info("using device", "port", name)
	return &device{port: p, name: name, closer: p, logger: logger}, nil
}

// show renders the emulator screen in the terminal. It is a no-op for a
// real device.
func (d *device) show() {
	if d.preview == nil {
		return
	}
	if err := d.preview.Show(d.emu.Image()); err != nil {
		d.logger.Warn("preview failed", "error", err)
	}
}

func (d *device) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// setupScreen runs the handshake and applies the theme orientation and the
// configured brightness.
func setupScreen(scr *screen.RevA, th *theme.Theme, brightness uint8) error {
	if err := scr.Init(); err != nil {
		return err
	}
	o, err := th.Orientation()
	if err != nil {
		return err
	}
	if err := scr.SetOrientation(o); err != nil {
		return err
	}
	if err := scr.SetBrightness(brightness); err != nil {
		return err
	}
	return scr.ScreenOn()
}

// showImage sends the image file at path, fitted to the screen, once, as a
// raw bitmap at the top left corner.
func showImage(scr *screen.RevA, path string, dev *device) error {
	w, h := scr.Size()
	img, err := framebuffer.LoadFitted(path, w, h)
	if err != nil {
		return err
	}
	if err := scr.DrawBitmap(screen.Bitmap565(img), 0, 0, img.Width, img.Height); err != nil {
		return err
	}
	dev.show()
	return nil
}

// loadBackground composes the theme background on a screen sized image.
func loadBackground(th *theme.Theme, width, height int) (*framebuffer.Image, error) {
	bg := th.StaticImages.Background
	if bg == nil || bg.Path == "" {
		return nil, nil
	}

	var (
		img *framebuffer.Image
		err error
	)
	path := th.Path(bg.Path)
	if bg.Width > 0 && bg.Height > 0 {
		img, err = framebuffer.LoadFitted(path, bg.Width, bg.Height)
	} else {
		img, err = framebuffer.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}

	out := framebuffer.New(width, height)
	out.BlendImage(img, img.Full(), geometry.NewCoord(bg.X, bg.Y))
	return out, nil
}

// createMeters builds the meter of every config. Unsupported keys are
// logged and dropped from the returned configs.
func createMeters(configs []theme.MeterConfig, logger *slog.Logger) ([]theme.MeterConfig, []*scheduler.Task) {
	var (
		kept  []theme.MeterConfig
		tasks []*scheduler.Task
	)
	for _, cfg := range configs {
		m, err := meter.Create(cfg.Key)
		if err != nil {
			logger.Warn("cannot register meter", "meter", cfg.Key, "error", err)
			continue
		}
		kept = append(kept, cfg)
		tasks = append(tasks, scheduler.NewTask(m, cfg.Interval))
	}
	return kept, tasks
}

// runDaemon runs the scheduler and the renderer until ctx is cancelled.
func runDaemon(ctx context.Context, cfg *config.Config, th *theme.Theme, scr *screen.RevA, dev *device, logger *slog.Logger) error {
	configs, tasks := createMeters(theme.MeterList(th, cfg.Scheduler.DefaultInterval.Duration), logger)
	if len(configs) == 0 {
		return errors.New("theme has no supported meters")
	}

	ids := make([]uint64, len(configs))
	for i, c := range configs {
		ids[i] = c.ID
	}
	snapshot := meter.NewMeasurements(ids...)

	w, h := scr.Size()
	bg, err := loadBackground(th, w, h)
	if err != nil {
		return err
	}

	slot := scheduler.NewSlot[meter.Measurements]()
	sched := scheduler.New(slot, cfg.Display.Refresh.Duration,
		scheduler.WithQuantum(cfg.Scheduler.Quantum.Duration),
		scheduler.WithLogger(logger.With("component", "scheduler")))
	for _, t := range tasks {
		sched.RegisterTask(t)
	}

	opts := []render.Option{
		render.WithLogger(logger.With("component", "renderer")),
		render.WithFontDir(cfg.Display.FontDir),
		render.WithThemeDir(th.Dir),
	}
	if bg != nil {
		opts = append(opts, render.WithBackground(bg))
	}
	if dev.preview != nil {
		opts = append(opts, render.WithFrameHook(func(*framebuffer.Image) { dev.show() }))
	}
	rend, err := render.New(slot.C(), configs, scr, opts...)
	if err != nil {
		return err
	}
	if err := rend.Prepare(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		renderErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer slot.Close()
		sched.Start(ctx, snapshot)
	}()
	go func() {
		defer wg.Done()
		if err := rend.Start(ctx); ctx.Err() == nil {
			renderErr = err
			cancel()
		}
	}()

	if cfg.Daemon.HealthFile != "" {
		health := daemon.NewHealth(cfg.Daemon.HealthFile, cfg.Daemon.HealthInterval.Duration,
			sched, dev.name, th.Name, logger.With("component", "health"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			health.Run(ctx)
		}()
	}

	wg.Wait()
	logger.Info("shutting down")
	return renderErr
}
