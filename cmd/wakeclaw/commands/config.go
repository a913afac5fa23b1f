package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/avelis/wakeclaw/pkg/wakeclaw/config"
)

// newConfigCmd creates the `wakeclaw config` command for managing
// configuration and secrets.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration and secrets",
		Long: `Manage wakeclaw configuration. Secrets are stored in the OS keyring
(Secret Service/Keychain/Credential Manager), never in the YAML file.

Examples:
  wakeclaw config init
  wakeclaw config set-token
  wakeclaw config delete-token`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigSetTokenCmd(),
		newConfigDeleteTokenCmd(),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default wakeclaw.yaml",
		RunE: func(_ *cobra.Command, _ []string) error {
			const path = "wakeclaw.yaml"
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Printf("Configuration written to ./%s\n", path)
			return nil
		},
	}
}

func newConfigSetTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-token",
		Short: "Store the Discord bot token in the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			if !config.KeyringAvailable() {
				return fmt.Errorf("OS keyring is not available; set %s instead", "WAKECLAW_DISCORD_TOKEN")
			}

			token, err := readSecret("Discord bot token: ")
			if err != nil {
				return err
			}
			if token == "" {
				return fmt.Errorf("empty token")
			}
			if err := config.StoreKeyring(config.KeyDiscordToken, token); err != nil {
				return fmt.Errorf("storing token: %w", err)
			}
			fmt.Println("Token stored in the OS keyring.")
			return nil
		},
	}
}

func newConfigDeleteTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-token",
		Short: "Remove the Discord bot token from the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := config.DeleteKeyring(config.KeyDiscordToken); err != nil {
				return fmt.Errorf("deleting token: %w", err)
			}
			fmt.Println("Token removed from the OS keyring.")
			return nil
		},
	}
}

// readSecret reads a secret without echo when stdin is a terminal; piped
// input is read as a single line.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print(prompt)
		data, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
