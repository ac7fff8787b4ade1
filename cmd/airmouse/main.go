package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ayusman/airmouse/internal/app"
	"github.com/ayusman/airmouse/internal/capture"
	"github.com/ayusman/airmouse/internal/config"
	"github.com/ayusman/airmouse/internal/detector"
	"github.com/ayusman/airmouse/internal/input"
	"github.com/ayusman/airmouse/internal/server"
	"github.com/ayusman/airmouse/internal/server/api"
	"github.com/ayusman/airmouse/internal/session"
	"github.com/ayusman/airmouse/internal/store"
	"github.com/ayusman/airmouse/internal/tray"
)

const (
	sweepInterval   = time.Minute
	actionRetention = 30 * 24 * time.Hour
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "airmouse: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "airmouse: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("airmouse stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	if n, err := st.Actions().DeleteBefore(time.Now().Add(-actionRetention)); err != nil {
		logger.Warn("failed to prune action log", zap.Error(err))
	} else if n > 0 {
		logger.Info("pruned action log", zap.Int64("rows", n))
	}

	tunables, err := api.LoadTunables(st, cfg.Tunables)
	if err != nil {
		logger.Warn("ignoring stored tunables", zap.Error(err))
	}

	pointer := input.New(logger)
	screenW, screenH := pointer.ScreenSize()
	logger.Info("screen", zap.Int("width", screenW), zap.Int("height", screenH), zap.Bool("display", input.HasDisplay()))

	det := newDetector(cfg.Detector, logger)

	if cfg.Camera.MirrorFrames && tunables.MirrorOutput {
		logger.Warn("mirror_frames and mirror_output both set; disabling mirror_output")
	}
	tunables = tunables.ForFrames(cfg.Camera.MirrorFrames)

	localCfg := tunables.Session(screenW, screenH)
	frameCfg := localCfg
	frameCfg.Dispatch.SuppressZoomRepeat = cfg.FrameSuppressZoomRepeat || tunables.SuppressZoomRepeat
	sessions := session.NewManager(frameCfg, cfg.SessionTTL, logger)

	var camera capture.Camera
	if cfg.Local {
		camera = capture.NewCamera(capture.Config{
			DeviceID: cfg.Camera.ID,
			Source:   cfg.Camera.Source,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
			Mirror:   cfg.Camera.MirrorFrames,
		})
	}

	a := app.New(app.Config{
		Camera:   camera,
		Detector: det,
		Pointer:  pointer,
		Store:    st,
		Session:  localCfg,
		Perform:  cfg.PerformMouse,
		Overlay:  true,
		Logger:   logger,
	})

	if cfg.Local {
		if err := a.Start(); err != nil {
			// The HTTP frame path still works without a local camera.
			logger.Warn("camera loop not started", zap.Error(err))
		}
	}
	defer a.Stop()

	webDir := findWebDir()
	if webDir != "" {
		logger.Info("serving static files", zap.String("dir", webDir))
	}

	srv := server.New(server.Config{
		StaticDir:               webDir,
		Store:                   st,
		App:                     a,
		Detector:                det,
		Sessions:                sessions,
		MirrorFrames:            cfg.Camera.MirrorFrames,
		Tunables:                tunables,
		ScreenWidth:             screenW,
		ScreenHeight:            screenH,
		FrameSuppressZoomRepeat: cfg.FrameSuppressZoomRepeat,
		Logger:                  logger,
	})
	httpServer := &http.Server{Addr: cfg.Addr, Handler: srv}

	stopSweeper := make(chan struct{})
	defer close(stopSweeper)
	go sessions.RunSweeper(sweepInterval, stopSweeper)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tray {
		t := tray.New(a)
		t.OnOpen(func() { openBrowser(dashboardURL(cfg.Addr), logger) })
		t.OnQuit(stop)
		go func() {
			select {
			case <-ctx.Done():
			case <-errCh:
			}
			t.Quit()
		}()
		t.Run()
	} else {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				return err
			}
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	return nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// newDetector prefers MediaPipe and falls back to the scripted mock.
func newDetector(cfg config.DetectorConfig, logger *zap.Logger) detector.Detector {
	if cfg.Mock {
		logger.Info("using mock hand detector")
		return detector.NewMockDetector()
	}

	dc := detector.DefaultConfig()
	dc.ScriptPath = cfg.ScriptPath
	if cfg.MaxHands > 0 {
		dc.MaxHands = cfg.MaxHands
	}
	if cfg.MinConfidence > 0 {
		dc.MinConfidence = cfg.MinConfidence
	}

	mp, err := detector.NewMediaPipeDetector(dc, logger)
	if err != nil {
		logger.Warn("MediaPipe not available, using mock detector", zap.Error(err))
		return detector.NewMockDetector()
	}
	logger.Info("using MediaPipe hand detection")
	return mp
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.airmouse/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".airmouse", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func dashboardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string, logger *zap.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("failed to open browser", zap.String("url", url), zap.Error(err))
	}
}
