package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nvlled/gifburst/lib/cache"
	"github.com/nvlled/gifburst/lib/capture"
	"github.com/nvlled/gifburst/lib/config"
	"github.com/nvlled/gifburst/lib/gifenc"
	"github.com/nvlled/gifburst/lib/logger"
	"github.com/nvlled/gifburst/lib/monitoring"
	"github.com/nvlled/gifburst/lib/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

const pollInterval = 100 * time.Millisecond

type options struct {
	region string
	purge  bool
	list   bool
}

func main() {
	args := os.Args[1:]
	conf, err := config.Load(config.Path(args))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var opts options
	fs := pflag.NewFlagSet("gifburst", pflag.ExitOnError)
	conf.WithFlags(fs)
	fs.StringVarP(&opts.region, "region", "r", "", "Capture region as left,top,width,height, the whole display when empty")
	fs.BoolVar(&opts.purge, "purge", false, "Delete every cached gif and exit")
	fs.BoolVar(&opts.list, "list", false, "List cached gifs and exit")
	_ = fs.Parse(args)

	if err := conf.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(conf)
	log.Debug().Str("config", conf.String()).Msg("starting")

	store := cache.NewStore(conf.Cache.Dir, cache.WithLogger(log.Tagged("cache")))
	switch {
	case opts.list:
		os.Exit(listCache(store))
	case opts.purge:
		os.Exit(purgeCache(store))
	}

	os.Exit(run(conf, opts, store, log))
}

func newLogger(conf *config.Config) *logger.Logger {
	if conf.Log.Console {
		return logger.NewConsole(conf.Log.Debug, "gifburst", conf.Log.NoColor)
	}
	return logger.New(conf.Log.Debug)
}

func listCache(store *cache.Store) int {
	handles, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list: %v\n", err)
		return 1
	}
	for _, h := range handles {
		fmt.Printf("%v\t%v\t%v\n", h.Name(), h.Size, h.URI())
	}
	return 0
}

func purgeCache(store *cache.Store) int {
	// best effort, failures are logged by the store
	removed, _ := store.Purge()
	fmt.Printf("removed %v entries from %v\n", removed, store.Dir())
	return 0
}

func run(conf *config.Config, opts options, store *cache.Store, log *logger.Logger) int {
	surface, err := capture.NewScreenSurface(conf.Capture.Display)
	if err != nil {
		log.Error().Err(err).Int("display", conf.Capture.Display).Msg("no capture source")
		return 1
	}
	region, err := parseRegion(opts.region, surface.Size())
	if err != nil {
		log.Error().Err(err).Msg("bad region")
		return 1
	}

	var metrics *monitoring.Metrics
	if conf.Monitoring.Addr != "" {
		reg := prometheus.NewRegistry()
		if metrics, err = monitoring.NewMetrics(reg); err != nil {
			log.Error().Err(err).Msg("metrics")
			return 1
		}
		server := monitoring.NewServer(conf.Monitoring.Addr, reg, conf.Monitoring.Profiling, log.Tagged("monitoring"))
		if _, err := server.Run(); err != nil {
			log.Error().Err(err).Msg("monitoring server")
			return 1
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()
	}

	loop, err := capture.NewLoop(capture.NewCapturer(log.Tagged("capture")), capture.LoopOptions{
		Cadence: conf.Cadence(),
		Log:     log.Tagged("loop"),
	})
	if err != nil {
		log.Error().Err(err).Msg("capture loop")
		return 1
	}
	gifOpts := conf.GifOptions()
	gifOpts.Log = log.Tagged("gif")
	encoder, err := gifenc.New(gifOpts)
	if err != nil {
		log.Error().Err(err).Msg("gif encoder")
		return 1
	}
	orchestrator, err := pipeline.New(pipeline.Options{
		Loop:    loop,
		Encoder: encoder,
		Store:   store,
		Metrics: metrics,
		Log:     log.Tagged("pipeline"),
	})
	if err != nil {
		log.Error().Err(err).Msg("pipeline")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// first interrupt stops the capture and keeps the frames, the second aborts
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		if _, ok := <-signals; !ok {
			return
		}
		log.Info().Msg("stopping capture")
		orchestrator.Stop()
		if _, ok := <-signals; ok {
			cancel()
		}
	}()

	if _, err := orchestrator.Start(ctx, region, surface); err != nil {
		log.Error().Err(err).Msg("start")
		return 1
	}
	cadence := conf.Cadence()
	fmt.Fprintf(os.Stderr, "capturing %v of %v, %v frames %v (ctrl-c to stop)\n", region, surface, cadence.Frames(), cadence)

	phase := follow(ctx, orchestrator)
	switch p := phase.(type) {
	case pipeline.Persisted:
		fmt.Println(p.Handle.URI())
		return 0
	case pipeline.Failed:
		fmt.Fprintln(os.Stderr, p.Reason)
		return 1
	case pipeline.Idle:
		fmt.Fprintln(os.Stderr, "nothing captured")
		return 0
	}
	fmt.Fprintf(os.Stderr, "unexpected end state %v\n", phase)
	return 1
}

// follow prints the session progress until it ends.
func follow(ctx context.Context, o *pipeline.Orchestrator) pipeline.Phase {
	done := make(chan pipeline.Phase, 1)
	go func() {
		phase, _ := o.Wait(context.Background())
		done <- phase
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			report(o.Drain())
		case phase := <-done:
			report(o.Drain())
			fmt.Fprintln(os.Stderr)
			return phase
		case <-ctx.Done():
			// the session notices the cancelled context and ends on its own
			ctx = context.Background()
		}
	}
}

func report(notifications []pipeline.Notification) {
	if len(notifications) == 0 {
		return
	}
	last := notifications[len(notifications)-1]
	switch p := last.Phase.(type) {
	case pipeline.Capturing:
		fmt.Fprintf(os.Stderr, "\rcapturing %3.0f%% %v frames", p.Progress*100, p.Frames)
	case pipeline.Encoding:
		fmt.Fprintf(os.Stderr, "\rencoding %v frames          ", p.Frames)
	}
}
