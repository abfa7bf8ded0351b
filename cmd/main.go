package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clouddrive/internal/auth"
	"clouddrive/internal/domain"
	"clouddrive/internal/handler"
	"clouddrive/internal/migrations"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "clouddrive",
	Short:        "Multi-tenant file storage service",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := migrations.Up(a.db.DB, a.log); err != nil {
			return err
		}

		tokens, err := auth.NewTokenManager(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}

		router := handler.NewRouter(handler.RouterConfig{
			AllowRegistration: a.cfg.Server.AllowRegistration,
			AllowedOrigins:    a.cfg.Server.AllowedOrigins,
			RequestTimeout:    a.cfg.Server.WriteTimeout,
		}, handler.Services{
			Files:    a.files,
			Folders:  a.folders,
			Quota:    a.quota,
			Shares:   a.shares,
			Accounts: a.accounts,
			Activity: a.activity,
		}, tokens, a.log)

		httpServer := &http.Server{
			Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			a.log.Info().Str("port", a.cfg.Server.Port).Msg("starting HTTP server")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to start HTTP server: %w", err)
			}
		case <-ctx.Done():
		}

		a.log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.log.Error().Err(err).Msg("HTTP server forced to shutdown")
		}

		a.log.Info().Msg("server exited properly")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		return migrations.Up(a.db.DB, a.log)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		current, latest, dirty, err := migrations.Status(a.db.DB)
		if err != nil {
			return err
		}

		fmt.Printf("Current version: %d\n", current)
		fmt.Printf("Latest version:  %d\n", latest)
		if dirty {
			fmt.Println("Database is dirty")
		}
		return nil
	},
}

var (
	adminUsername string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if adminPassword == "" {
			adminPassword = os.Getenv("ADMIN_PASSWORD")
		}

		account, err := a.accounts.CreateAccount(cmd.Context(), domain.CreateAccountRequest{
			Username: adminUsername,
			Email:    adminEmail,
			Password: adminPassword,
			IsAdmin:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}

		fmt.Printf("Admin %s created with id %d\n", account.Username, account.ID)
		return nil
	},
}

var reconcileAccountID int64

var reconcileCmd = &cobra.Command{
	Use:   "reconcile-quota",
	Short: "Recompute storage usage from live files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		ids := []int64{reconcileAccountID}
		if reconcileAccountID == 0 {
			accounts, err := a.accounts.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}
			ids = ids[:0]
			for _, acc := range accounts {
				ids = append(ids, acc.ID)
			}
		}

		var fixed int
		for _, id := range ids {
			drift, err := a.quota.Reconcile(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to reconcile account %d: %w", id, err)
			}
			if drift != 0 {
				fixed++
				fmt.Printf("Account %d: corrected by %d bytes\n", id, drift)
			}
		}

		fmt.Printf("Checked %d accounts, corrected %d\n", len(ids), fixed)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "admin username")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (or ADMIN_PASSWORD)")
	createAdminCmd.MarkFlagRequired("email")

	reconcileCmd.Flags().Int64Var(&reconcileAccountID, "account", 0, "reconcile a single account")

	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd, reconcileCmd)
}
