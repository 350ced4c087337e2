package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"localgroup/internal/config"
	"localgroup/internal/discovery"
	"localgroup/internal/engine"
	"localgroup/internal/inspect"
	"localgroup/internal/journal"
	"localgroup/internal/node"
	"localgroup/internal/position"
	"localgroup/internal/telemetry"
	"localgroup/internal/transport"
)

const shutdownTimeout = 5 * time.Second

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one node over UDP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := parseRunFlags(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.Flags())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runNode(cmd.Context(), cfg, logger)
		},
	}
	addRunFlags(cmd.Flags())
	return cmd
}

func parseIP(s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, nil
	}
	return netip.ParseAddr(s)
}

func runNode(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	bind, err := parseIP(cfg.Transport.Bind)
	if err != nil {
		return fmt.Errorf("bind address: %w", err)
	}
	advertise, err := parseIP(cfg.Transport.Advertise)
	if err != nil {
		return fmt.Errorf("advertise address: %w", err)
	}
	bcast, err := parseIP(cfg.Transport.Broadcast)
	if err != nil {
		return fmt.Errorf("broadcast address: %w", err)
	}

	udp, err := transport.NewUDP(ctx, transport.UDPConfig{
		Bind:      bind,
		Port:      cfg.Transport.Port,
		Advertise: advertise,
		Broadcast: bcast,
		Peers:     cfg.PeerAddrs(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	var pos position.Source = position.Static{X: cfg.Mobility.X, Y: cfg.Mobility.Y}
	if cfg.Mobility.VX != 0 || cfg.Mobility.VY != 0 {
		pos = position.NewLinear(cfg.Mobility.X, cfg.Mobility.Y, cfg.Mobility.VX, cfg.Mobility.VY)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	telemetry.RegisterProcess(reg, version)
	opts := []engine.Option{engine.WithMetrics(telemetry.New(telemetry.ForNode(reg, cfg.NodeID)))}

	var jw *journal.Writer
	if cfg.JournalPath != "" {
		if jw, err = journal.Open(cfg.JournalPath); err != nil {
			_ = udp.Close()
			return err
		}
		opts = append(opts, engine.WithJournal(jw))
	}

	n := node.New(cfg, udp, pos, logger, opts...)
	n.Start()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AdminAddr != "" {
		srv := inspect.NewServer(n, logger)
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.AdminAddr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.AdminAddr, err)
			}
			return srv.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			srv.Stop()
			return nil
		})
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler(reg))
		hs := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return hs.Shutdown(sctx)
		})
	}

	if len(cfg.Discovery.Endpoints) > 0 {
		g.Go(func() error {
			return runDiscovery(gctx, cfg, udp.LocalAddr().IP(), udp, logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return n.Stop()
	})

	err = g.Wait()
	if jw != nil {
		if cerr := jw.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runDiscovery registers the node in etcd and keeps the UDP fan-out list in
// step with the registered peers until ctx is done.
func runDiscovery(ctx context.Context, cfg config.Config, self netip.Addr, udp *transport.UDP, logger *zap.Logger) error {
	cli, err := discovery.NewClient(cfg.Discovery.Endpoints)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	lease, err := discovery.RegisterNode(ctx, cli, cfg.Discovery.Prefix, cfg.NodeID, self, cfg.Discovery.TTL)
	if err != nil {
		return err
	}
	log := logger.Named("discovery")
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := discovery.Deregister(sctx, cli, lease); err != nil {
			log.Warn("deregister failed", zap.Error(err))
		}
	}()

	return discovery.WatchPeers(ctx, cli, cfg.Discovery.Prefix, log, func(peers []config.Peer) {
		addrs := make([]netip.Addr, 0, len(peers))
		for _, p := range peers {
			if p.ID != cfg.NodeID {
				addrs = append(addrs, p.Addr)
			}
		}
		udp.SetPeers(addrs)
		log.Info("peer list updated", zap.Int("peers", len(addrs)))
	})
}
