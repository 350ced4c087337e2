// Command relay re-sends every datagram it hears to all configured targets
// except the one it came from.
package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"localgroup/internal/relay"
	"localgroup/internal/transport"
	"localgroup/internal/wire"
)

type options struct {
	bind      string
	advertise string
	port      int
	targets   string
	debug     bool
}

func parseTargets(s string) ([]wire.Addr, error) {
	var out []wire.Addr
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ip, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", part, err)
		}
		a, ok := wire.AddrFrom4(ip)
		if !ok {
			return nil, fmt.Errorf("target %s is not IPv4", ip)
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no targets")
	}
	return out, nil
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	targets, err := parseTargets(opts.targets)
	if err != nil {
		return err
	}
	var bind netip.Addr
	if opts.bind != "" {
		if bind, err = netip.ParseAddr(opts.bind); err != nil {
			return fmt.Errorf("bind address: %w", err)
		}
	}
	advertise, err := netip.ParseAddr(opts.advertise)
	if err != nil {
		return fmt.Errorf("advertise address: %w", err)
	}

	udp, err := transport.NewUDP(ctx, transport.UDPConfig{
		Bind:      bind,
		Port:      opts.port,
		Advertise: advertise,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	r := relay.New(udp, targets, logger)
	r.Start()
	logger.Info("relaying", zap.Int("port", opts.port), zap.Int("targets", len(targets)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		fwd, failed := r.Stats()
		logger.Info("stopping", zap.Uint64("forwarded", fwd), zap.Uint64("failed", failed))
		return r.Close()
	})
	return g.Wait()
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("relay", pflag.ExitOnError)
	flags.StringVar(&opts.bind, "bind", "", "Local IP to listen on (default all interfaces)")
	flags.StringVar(&opts.advertise, "advertise", "127.0.0.1", "This relay's own IPv4 address, never forwarded to")
	flags.IntVar(&opts.port, "port", transport.DefaultPort, "Network-wide datagram port")
	flags.StringVar(&opts.targets, "targets", "", "Comma-separated IPv4 addresses to forward to")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	_ = flags.Parse(os.Args[1:])

	logger, err := zap.NewProduction()
	if opts.debug {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "relay:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("relay failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}
