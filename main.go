package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soar/camstick/internal/config"
	"github.com/soar/camstick/internal/console"
	"github.com/soar/camstick/internal/gamepad/sdlreader"
	"github.com/soar/camstick/internal/hub"
	"github.com/soar/camstick/internal/logging"
	"github.com/soar/camstick/internal/server"
	"github.com/soar/camstick/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func main() {
	opts, err := parseOptions(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	logger, err := logging.New(opts.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck

	if opts.ListDevices {
		if err := listDevices(); err != nil {
			logger.Fatalw("listing devices", "error", err)
		}
		return
	}

	if err := run(opts, logger); err != nil {
		logger.Errorw("camstick stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("camstick stopped")
}

func listDevices() error {
	if err := sdlreader.Init(); err != nil {
		return err
	}
	defer sdlreader.Quit()

	infos := sdlreader.Enumerate()
	if len(infos) == 0 {
		fmt.Println("no joysticks attached")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%d: %s (%04x:%04x) axes=%d buttons=%d hats=%d\n",
			info.Index, info.Name, info.VendorID, info.ProductID, info.NumAxes, info.NumButtons, info.NumHats)
	}
	return nil
}

func run(opts options, logger *zap.SugaredLogger) error {
	ctx, cancel := console.NotifyShutdown(context.Background())
	defer cancel()

	doc := config.NewDocument(opts.ConfigPath)
	res, err := config.Load(doc)
	switch {
	case err != nil:
		logger.Warnw("using default settings", "path", doc.Path, "error", err)
	case res.Created:
		logger.Infow("wrote default settings", "path", doc.Path)
	}
	for _, d := range res.Dropped {
		logger.Debugw("ignoring setting", "key", d.Key, "error", d.Err)
	}
	configLogger := logger.Named("config")
	store := config.NewStore(res.Config, doc, res.Content, configLogger)

	hubLogger := logger.Named("hub")
	h := hub.NewHub(hubLogger)
	broadcaster := hub.NewBroadcaster(h, nil, store.Subscribe(), store.Snapshot(), hubLogger)
	editor := config.NewEditor(store, clock.New(), config.DefaultQuietPeriod, configLogger, broadcaster.OnStatus)
	defer editor.Close()

	ctrl := &controller{store: store, broadcaster: broadcaster, opts: opts, logger: logger}

	srv, err := server.New(h, broadcaster, editor, ctrl.stats, frontendFS(), opts.Listen, logger.Named("server"))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Run(gctx) })
	g.Go(func() error { return broadcaster.Run(gctx) })
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "settings server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	if opts.Watch {
		g.Go(func() error { return config.Watch(gctx, store, configLogger) })
	}
	g.Go(func() error {
		// the device ending ends the process
		defer cancel()
		return ctrl.run(gctx)
	})

	url := settingsURL(opts.Listen)
	logger.Infow("camstick started", "settings", url, "config", doc.Path)

	if opts.Tray {
		t := tray.New(url, func() {
			logger.Info("shutdown requested from tray")
			cancel()
		}, logger)
		go t.Run(tray.Icon())
		defer t.Quit()
	} else {
		logger.Info("press Ctrl+C to exit")
	}

	return g.Wait()
}
