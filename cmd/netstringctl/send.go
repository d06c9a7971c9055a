package main

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/netstring/internal/client"
	"github.com/danmuck/netstring/internal/config"
	"github.com/spf13/cobra"
)

type sendFlags struct {
	configPath string
	network    string
	addr       string
	timeout    string
	last       string
	noReply    bool
}

func newSendCmd() *cobra.Command {
	var f sendFlags
	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Send messages and print one reply per message",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveSendConfig(cmd, f)
			if err != nil {
				return err
			}
			if len(args) == 0 && cfg.Last == "" {
				return fmt.Errorf("nothing to send: pass messages or --last")
			}
			return runSend(cmd.Context(), cmd, cfg, args, f.noReply)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "send config file (.toml, .yaml)")
	flags.StringVar(&f.network, "network", "", "dial network: tcp or unix")
	flags.StringVar(&f.addr, "addr", "", "server address")
	flags.StringVar(&f.timeout, "timeout", "", "dial and per-reply timeout, e.g. 5s")
	flags.StringVar(&f.last, "last", "", "final message sent after the others")
	flags.BoolVar(&f.noReply, "no-reply", false, "do not wait for replies")
	return cmd
}

func resolveSendConfig(cmd *cobra.Command, f sendFlags) (config.SendConfig, error) {
	cfg := config.DefaultSendConfig()
	if f.configPath != "" {
		loaded, err := config.LoadSendConfig(f.configPath)
		if err != nil {
			return config.SendConfig{}, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("network") {
		cfg.Network = f.network
	}
	if flags.Changed("addr") {
		cfg.Addr = f.addr
	}
	if flags.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if flags.Changed("last") {
		cfg.Last = f.last
	}
	if err := config.ValidateSendConfig(cfg); err != nil {
		return config.SendConfig{}, err
	}
	return cfg, nil
}

func runSend(ctx context.Context, cmd *cobra.Command, cfg config.SendConfig, messages []string, noReply bool) error {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}
	session, err := client.Dial(ctx, client.Config{
		Name:          cfg.Name,
		Network:       cfg.Network,
		Addr:          cfg.Addr,
		Timeout:       timeout,
		Channel:       cfg.Channel.ChannelOptions(cfg.Name),
		InboxCapacity: cfg.Channel.InboxCapacity,
	})
	if err != nil {
		return err
	}

	if err := sendAll(ctx, cmd, session, messages, timeout, noReply); err != nil {
		_ = session.Close()
		return err
	}
	if cfg.Last != "" {
		if err := session.SendLast(cfg.Last); err != nil {
			_ = session.Close()
			return fmt.Errorf("send last: %w", err)
		}
	}
	return session.Close()
}

func sendAll(ctx context.Context, cmd *cobra.Command, session *client.Session, messages []string, timeout time.Duration, noReply bool) error {
	if noReply {
		for _, msg := range messages {
			if err := session.Channel().Send(msg); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
		return session.Channel().Flush()
	}
	for _, msg := range messages {
		reqCtx, cancel := requestContext(ctx, timeout)
		reply, err := session.Request(reqCtx, msg)
		cancel()
		if err != nil {
			return fmt.Errorf("request %q: %w", msg, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
	}
	return nil
}

func requestContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
