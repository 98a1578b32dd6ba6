package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/LeoCommon/gprsclient/internal/client"
	"github.com/LeoCommon/gprsclient/internal/client/config"
	"github.com/LeoCommon/gprsclient/pkg/log"
	"github.com/LeoCommon/gprsclient/pkg/systemd"
	"go.uber.org/zap"
)

// run performs the configured requests and returns the exit code
func run(ctx context.Context, app *client.App) int {
	if err := app.Runner.WaitReady(ctx); err != nil {
		log.Error("modem did not come up", zap.Error(err))
		return 1
	}
	log.Info("modem ready, pdp context active")
	_ = systemd.Notify(systemd.NotifyReady, systemd.Status("modem ready"))

	request := app.Conf.Request().C()
	interval := time.NewTicker(request.Interval.Value())
	defer interval.Stop()

	failed := 0
	for i := 0; request.Count == 0 || i < request.Count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				log.Info("exit signal received - stopping requests")
				return exitCode(failed)
			case <-interval.C:
			}
		}

		result, err := app.Runner.Do(ctx, request.Host, request.Path)
		if err != nil {
			if ctx.Err() != nil {
				return exitCode(failed)
			}
			failed++
			_ = systemd.Notify(systemd.Status(fmt.Sprintf("request %d failed: %s", i+1, err)))
		} else {
			fmt.Printf("%s %s -> %s\n", result.ID, result.Host, result.Address)
			_ = systemd.Notify(systemd.Status(fmt.Sprintf("request %d: %s -> %s", i+1, result.Host, result.Address)))
		}

		// A broken serial port does not recover, let the service manager restart us
		if err := app.Transport.Err(); err != nil {
			log.Error("serial port failed", zap.Error(err))
			return 1
		}
	}

	return exitCode(failed)
}

func exitCode(failed int) int {
	if failed > 0 {
		return 1
	}
	return 0
}

func main() {
	flags := config.ParseCLIFlags()

	app, err := client.Setup(flags)
	if err != nil || app == nil {
		fmt.Printf("Initialization failed, error: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-app.ExitSignal
		log.Info("exit signal received - shutting down")
		cancel()
	}()

	code := run(ctx, app)
	cancel()

	_ = systemd.Notify(systemd.NotifyStopping)
	app.Shutdown()

	os.Exit(code)
}
