package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bratomyr/ukur/go/service"
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	mbp "go.gazette.dev/core/mainboilerplate"
	"go.gazette.dev/core/task"
)

const iniFilename = "ukur.ini"

// Config is the top-level configuration object of a ukur node.
var Config = new(service.Config)

type cmdServe struct{}

func (cmdServe) Execute(_ []string) error {
	defer mbp.InitDiagnosticsAndRecover(Config.Diagnostics)()
	mbp.InitLog(Config.Log)

	log.WithFields(log.Fields{
		"config":    Config,
		"version":   mbp.Version,
		"buildDate": mbp.BuildDate,
	}).Info("ukur configuration")

	// Bind our server listener, grabbing a random available port if Port is zero.
	var server, err = service.NewServer(Config.Ukur.Port)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	var args = service.Args{
		Config: Config,
		Server: server,
		Tasks:  task.NewGroup(context.Background()),
		Etcd:   Config.Etcd.MustDial(),
	}
	status, err := service.Start(args)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	args.Server.QueueTasks(args.Tasks)

	log.WithFields(log.Fields{
		"endpoint":    server.Endpoint(),
		"requestorId": status.RequestorID(),
	}).Info("starting ukur")

	// Install signal handler & start service tasks.
	var signalCh = make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGTERM, syscall.SIGINT)

	args.Tasks.Queue("watch signalCh", func() error {
		select {
		case sig := <-signalCh:
			log.WithField("signal", sig).Info("caught signal")

			args.Tasks.Cancel()
			return nil

		case <-args.Tasks.Context().Done():
			return nil
		}
	})
	args.Tasks.GoRun()

	// Block until all tasks complete.
	if err = args.Tasks.Wait(); err != nil {
		return fmt.Errorf("task failed: %w", err)
	}

	log.Info("goodbye")
	return nil
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)

	_, _ = parser.AddCommand("serve", "Serve as ukur node", `
Serve a ukur deviation notification node with the provided configuration,
until signaled to exit (via SIGTERM).
`, &cmdServe{})

	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.MustParseConfig(parser, iniFilename)
}
