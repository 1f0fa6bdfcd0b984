// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caden602/NIST-LAC1550/exchange"
	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/internal/gateway"
	"github.com/caden602/NIST-LAC1550/transport"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// gatewayCmd represents the gateway command
var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Bridge remote hosts to local devices",
	Long: `Run the gateways configured under gateways. Each gateway accepts frames
from hosts on its upstreams and relays them to the downstream device link
routed for the destination address. Requests to one downstream are
serialized; replies, NACKs included, are relayed back to the host.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ecfg, err := exchange.NewConfig(cfg.Protocol, table)
		if err != nil {
			return err
		}

		var gateways []*gateway.Gateway
		for _, gwCfg := range cfg.Gateways {
			gw, err := buildGateway(gwCfg, ecfg)
			if err != nil {
				slog.Error("Skipping gateway", "gateway", gwCfg.Name, "err", err)
				continue
			}
			gateways = append(gateways, gw)
		}
		if len(gateways) == 0 {
			return errors.New("no valid gateways configured")
		}

		slog.Info("Starting gateways", "count", len(gateways))
		g, gctx := errgroup.WithContext(cmd.Context())
		for _, gw := range gateways {
			gw := gw
			g.Go(func() error {
				if err := gw.Start(gctx); err != nil {
					return fmt.Errorf("gateway %s: %w", gw.Name, err)
				}
				return nil
			})
		}
		err = g.Wait()
		slog.Info("Goodbye.")
		return err
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func buildGateway(gwCfg config.GatewayConfig, ecfg exchange.Config) (*gateway.Gateway, error) {
	// Create Upstreams
	var upstreams []transport.Upstream
	for _, usCfg := range gwCfg.Upstreams {
		us, err := newUpstream(usCfg, ecfg.Codec)
		if err != nil {
			slog.Error("Invalid upstream", "gateway", gwCfg.Name, "err", err)
			continue
		}
		upstreams = append(upstreams, us)
	}
	if len(upstreams) == 0 {
		return nil, errors.New("no valid upstreams")
	}

	// Create Downstreams and the routing table
	routes := make(map[byte]*gateway.Downstream)
	var defaultRoute *gateway.Downstream
	for i, dsCfg := range gwCfg.Downstreams {
		name := dsCfg.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", gwCfg.Name, i)
		}

		link, err := newLink(config.TransportConfig{
			Type:   dsCfg.Type,
			Serial: dsCfg.Serial,
			Tcp:    dsCfg.Tcp,
			Local:  dsCfg.Local,
		}, ecfg.Codec, ecfg.Commands, ecfg.Table)
		if err != nil {
			return nil, fmt.Errorf("downstream %s: %w", name, err)
		}
		ds := gateway.NewDownstream(name, link, ecfg)

		if dsCfg.Addresses == "" {
			if defaultRoute != nil {
				slog.Warn("Multiple default downstreams, keeping the first", "gateway", gwCfg.Name, "downstream", name)
				continue
			}
			defaultRoute = ds
			continue
		}

		addrs, err := gateway.ParseAddresses(dsCfg.Addresses)
		if err != nil {
			return nil, fmt.Errorf("downstream %s: %w", name, err)
		}
		for _, a := range addrs {
			if prev, ok := routes[a]; ok {
				slog.Warn("Address routed twice, keeping the first", "gateway", gwCfg.Name, "address", fmt.Sprintf("%#02x", a), "downstream", prev.Name)
				continue
			}
			routes[a] = ds
		}
	}
	if len(routes) == 0 && defaultRoute == nil {
		return nil, errors.New("no valid downstreams")
	}

	return gateway.NewGateway(gwCfg.Name, upstreams, routes, defaultRoute), nil
}
