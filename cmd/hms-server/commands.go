package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/telemetry"
	"github.com/hms/hms/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HMS API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	stopTracing, err := telemetry.SetupTracing(telemetry.TracingConfig{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "hms-server",
		ServiceVersion: version,
		Environment:    cfg.Env,
		JaegerEndpoint: cfg.TracingJaegerEndpoint,
		SampleRate:     cfg.TracingSampleRate,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		_ = stopTracing(context.Background())
		return err
	}
	a.stopTracing = stopTracing
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.close(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown incomplete")
		}
	}()

	if cfg.SeedDemoData {
		if err := a.seedDemo(ctx); err != nil {
			return err
		}
	}
	if err := a.startBackground(ctx); err != nil {
		return err
	}
	e := a.routes()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// withApp runs fn against the configured store and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := a.close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo patients, bills and catalog items into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return a.seedDemo(ctx)
			})
		},
	}
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or import the whole store as JSON",
	}

	var out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the store contents as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return writeOutput(out, cmd.OutOrStdout(), func(w io.Writer) error {
					return exportSnapshot(a.store, w)
				})
			})
		},
	}
	exportCmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	cmd.AddCommand(exportCmd)

	var in string
	var force bool
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the store contents with a JSON snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := importSnapshot(ctx, a.store, f, force); err != nil {
					return err
				}
				a.logger.Info().Str("file", in).Msg("snapshot imported")
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&in, "in", "", "snapshot file to import")
	importCmd.Flags().BoolVar(&force, "force", false, "replace a store that already has patients")
	_ = importCmd.MarkFlagRequired("in")
	cmd.AddCommand(importCmd)

	return cmd
}

func exportSnapshot(st *store.Store, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st.ExportState())
}

func importSnapshot(ctx context.Context, st *store.Store, r io.Reader, force bool) error {
	var snap store.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if !force && len(st.ExportState().Patients) > 0 {
		return errors.New("store already has patients, pass --force to replace it")
	}
	if err := st.ImportState(snap); err != nil {
		return err
	}
	return st.Flush(ctx)
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the xlsx report workbook",
	}

	var out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write today's report workbook to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				data, err := a.reports.Export(ctx, a.store.Now())
				if err != nil {
					return err
				}
				name := out
				if name == "" {
					name = "hms-report-" + a.store.Now().Format("2006-01-02") + ".xlsx"
				}
				if err := os.WriteFile(name, data, 0o644); err != nil {
					return err
				}
				a.logger.Info().Str("file", name).Int("bytes", len(data)).Msg("report written")
				return nil
			})
		},
	}
	exportCmd.Flags().StringVar(&out, "out", "", "output file (default hms-report-<date>.xlsx)")
	cmd.AddCommand(exportCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "archive",
		Short: "Upload today's report workbook to the configured blob store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				info, err := a.reports.Archive(ctx, a.store.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), info.Key)
				return nil
			})
		},
	})

	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage staff bearer tokens",
	}

	var (
		subject string
		name    string
		roles   string
		ttl     time.Duration
	)
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for a staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := auth.IssueToken(auth.JWTConfig{
				Issuer:     cfg.AuthIssuer,
				Audience:   cfg.AuthAudience,
				SigningKey: []byte(cfg.AuthSigningKey),
			}, auth.TokenRequest{
				Subject: subject,
				Name:    name,
				Roles:   splitRoles(roles),
				TTL:     ttl,
			}, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&subject, "subject", "", "staff user id")
	issueCmd.Flags().StringVar(&name, "name", "", "display name stamped on records")
	issueCmd.Flags().StringVar(&roles, "roles", "", "comma separated roles: "+strings.Join(auth.Roles, ", "))
	issueCmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = issueCmd.MarkFlagRequired("subject")
	cmd.AddCommand(issueCmd)

	return cmd
}

func splitRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// writeOutput sends fn's output to stdout for "-" and to the named file
// otherwise.
func writeOutput(name string, stdout io.Writer, fn func(io.Writer) error) error {
	if name == "" || name == "-" {
		return fn(stdout)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
