// Package main provides the CLI entry point for the gateway binary.
//
// # Basic Usage
//
// Start the server:
//
//	gatewayd serve --config gateway.yaml
//
// Check configuration without starting a listener:
//
//	gatewayd validate --config gateway.yaml
//
// List the registered HTTP routes, or audit the deployment for common
// hazards:
//
//	gatewayd routes
//	gatewayd doctor --config gateway.yaml --probe
//
// # Environment Variables
//
// Every config field can be overridden via ${VAR} expansion inside the
// YAML file itself; common ones:
//
//   - GATEWAY_CONFIG: path to the configuration file (default: gateway.yaml)
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, OPENROUTER_API_KEY: provider credentials
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lynkr-ai/gateway/internal/config"
	"github.com/lynkr-ai/gateway/internal/doctor"
	"github.com/lynkr-ai/gateway/internal/gateway"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "gatewayd",
		Short:        "Multi-provider LLM gateway and agent-loop runtime",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildServeCmd(), buildValidateCmd(), buildRoutesCmd(), buildDoctorCmd())
	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := gateway.New(ctx, cfg, slog.Default())
			if err != nil {
				return fmt.Errorf("build server: %w", err)
			}
			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("start server: %w", err)
			}

			<-ctx.Done()
			slog.Info("shutting down")
			return srv.Stop(context.Background())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the gateway config file")
	return cmd
}

func buildValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration file without starting a listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			fmt.Printf("config OK: %d provider(s) configured, default %q\n", len(cfg.LLM.Providers), cfg.LLM.DefaultProvider)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the gateway config file")
	return cmd
}

// routeInfo mirrors the registration order in internal/gateway/http_server.go's
// mux(); kept here as a static table rather than introspecting a live
// *http.ServeMux since Go's ServeMux exposes no route enumeration API.
type routeInfo struct {
	pattern string
	method  string
	auth    bool
}

var routeTable = []routeInfo{
	{"/health", "GET", false},
	{"/metrics", "GET", false},
	{"/v1/messages", "POST", true},
	{"/v1/messages/count_tokens", "POST", true},
	{"/debug/session", "GET", true},
	{"/api/event_logging/batch", "POST", true},
}

func buildRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the HTTP routes the server registers",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, r := range routeTable {
				auth := "open"
				if r.auth {
					auth = "authenticated"
				}
				fmt.Fprintf(out, "%-6s %-32s %s\n", r.method, r.pattern, auth)
			}
			return nil
		},
	}
}

func buildDoctorCmd() *cobra.Command {
	var configPath string
	var probe bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and audit the deployment for common hazards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath, probe)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the gateway config file")
	cmd.Flags().BoolVar(&probe, "probe", false, "resolve each configured provider's credentials")
	return cmd
}

func runDoctor(cmd *cobra.Command, configPath string, probe bool) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	audit := doctor.AuditSecurity(cfg)
	if len(audit.Findings) == 0 {
		fmt.Fprintln(out, "Security audit: no issues detected")
	} else {
		fmt.Fprintln(out, "Security audit:")
		for _, f := range audit.Findings {
			fmt.Fprintf(out, "  - [%s] %s\n", strings.ToUpper(string(f.Severity)), f.Message)
		}
	}

	if probe {
		results := doctor.ProbeProviderCredentials(cmd.Context(), cfg.LLM)
		fmt.Fprintln(out, "Provider credential probes:")
		for _, r := range results {
			status := "ok"
			if !r.OK {
				status = "FAIL"
			}
			fmt.Fprintf(out, "  - %s: %s (%s)\n", r.Provider, status, r.Detail)
		}
	}

	fmt.Fprintf(out, "Config OK (default provider: %s)\n", cfg.LLM.DefaultProvider)
	return nil
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("GATEWAY_CONFIG"); env != "" {
		return env
	}
	return "gateway.yaml"
}
