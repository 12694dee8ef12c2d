package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"datalocker/internal/app"
	"datalocker/internal/config"
	"datalocker/internal/locker"
	"datalocker/internal/model"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Encrypt", "Status").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readConfig loads the config without constructing an App, for commands
// that must run before the store exists.
func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return cfg, nil
}

// startSpinner shows a progress spinner until the returned stop func runs.
func startSpinner(message string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

// readPassphrase prompts on stderr and reads a passphrase without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// printReport lists per-file outcomes. It returns a non-nil error when the
// invocation aborted or any file failed, so the command exits non-zero.
func printReport(report *locker.Report, err error) error {
	if report != nil {
		for _, path := range report.Succeeded {
			fmt.Printf("%s %s\n", color.GreenString("✓"), path)
		}
		for _, fe := range report.Failed {
			fmt.Printf("%s %s: %v\n", color.RedString("✗"), fe.Path, fe.Err)
		}
	}

	if err != nil {
		return err
	}
	if !report.Ok() {
		return fmt.Errorf("%d of %d file(s) failed", len(report.Failed), report.Total())
	}

	fmt.Printf("%d file(s) processed\n", report.Total())
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "datalocker",
	Short: "Single-operator file encryption",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new host ID
		hostID := uuid.New().String()

		// Create config with defaults
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		// Initialize config file
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Read config
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		// Display config
		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:  %s\n", cfg.HostID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Store:    %s\n", cfg.Store.Type)
		fmt.Printf("Cipher:   %s\n", cfg.Cipher.Algorithm)
		escrow := "disabled"
		if cfg.Escrow.Enabled {
			escrow = fmt.Sprintf("enabled (%s vault)", cfg.Escrow.Vault.Type)
		}
		fmt.Printf("Escrow:   %s\n", escrow)
		return nil
	},
}

// encrypt command
var encryptCmd = &cobra.Command{
	Use:   "encrypt PATH",
	Short: "Encrypt a file or directory tree in place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Encrypt")
		if err != nil {
			return err
		}
		defer a.Close()

		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		stop := startSpinner("Encrypting...")
		report, err := a.Encrypt(absPath)
		stop()

		return printReport(report, err)
	},
}

// decrypt command
var decryptCmd = &cobra.Command{
	Use:   "decrypt PATH",
	Short: "Decrypt a file or directory tree in place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Decrypt")
		if err != nil {
			return err
		}
		defer a.Close()

		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		stop := startSpinner("Decrypting...")
		report, err := a.Decrypt(absPath)
		stop()

		return printReport(report, err)
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status [PATH]",
	Short: "Show the encryption state of files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		absTarget, err := filepath.Abs(target)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		statuses, err := a.Status(absTarget)
		if err != nil {
			return err
		}

		if len(statuses) == 0 {
			fmt.Println("No files found.")
			return nil
		}

		for _, s := range statuses {
			var indicator string
			switch s.State {
			case model.StatePlaintext:
				indicator = color.YellowString("P")
			case model.StateCiphertext:
				indicator = color.GreenString("E")
			case model.StateMissing:
				indicator = color.RedString("!")
			default:
				indicator = "?"
			}
			size := "-"
			if s.State != model.StateMissing {
				size = humanize.Bytes(uint64(s.Size))
			}
			fmt.Printf("%s  %-10s %s\n", indicator, size, s.Path)
		}

		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s  %s  %-9s  %s\n",
				e.ID[:8],
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.Operation,
				e.Path,
			)
		}
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch [DIR]",
	Short: "Encrypt files in a directory as they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		absTarget, err := filepath.Abs(target)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Printf("Watching %s\n", absTarget)
		if err := a.Watch(ctx, absTarget); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// escrow command
var escrowCmd = &cobra.Command{
	Use:   "escrow",
	Short: "Manage key store escrow",
}

var escrowInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate escrow keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase("Passphrase to protect the escrow key: ")
		if err != nil {
			return err
		}
		if passphrase == "" {
			return fmt.Errorf("passphrase must not be empty")
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := app.InitEscrow(cfg, passphrase); err != nil {
			return fmt.Errorf("initializing escrow: %w", err)
		}

		fmt.Println("Escrow keys generated.")
		fmt.Printf("Recipient: %s\n", cfg.Escrow.RecipientPath)
		fmt.Printf("Identity:  %s (sealed with your passphrase)\n", cfg.Escrow.IdentityPath)
		return nil
	},
}

var escrowPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push a sealed key store snapshot to the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PushEscrow")
		if err != nil {
			return err
		}
		defer a.Close()

		stop := startSpinner("Pushing snapshot...")
		err = a.PushEscrow()
		stop()
		if err != nil {
			return fmt.Errorf("pushing snapshot: %w", err)
		}

		fmt.Println("Snapshot pushed.")
		return nil
	},
}

var escrowRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the key store from the escrowed snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := readConfig()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase("Escrow passphrase: ")
		if err != nil {
			return err
		}

		stop := startSpinner("Restoring snapshot...")
		err = app.RestoreEscrow(cfg, passphrase, force)
		stop()
		if err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}

		fmt.Println("Key store restored.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// escrow subcommands
	escrowCmd.AddCommand(escrowInitCmd)
	escrowCmd.AddCommand(escrowPushCmd)
	escrowCmd.AddCommand(escrowRestoreCmd)
	escrowRestoreCmd.Flags().BoolP("force", "f", false, "Overwrite an existing local store")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show")
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(escrowCmd)
}
