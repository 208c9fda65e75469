package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/repomine/repomine/internal/config"
	"github.com/repomine/repomine/internal/github"
)

var authFile string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Store a GitHub personal access token",
	Long: `Prompts for a GitHub personal access token with echo disabled and writes
it to the auth file the mining commands read. The target defaults to the
auth_file of the job configuration.`,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().StringVar(&authFile, "file", "", "auth file to write (default: auth_file from config)")
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, _ []string) error {
	target := authFile
	if target == "" {
		cfgStore, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("no --file given and config not loadable: %w", err)
		}
		target = cfgStore.GetString(config.KeyAuthFile)
		if target == "" {
			return fmt.Errorf("no --file given and config has no %q", config.KeyAuthFile)
		}
	}

	cmd.Print("GitHub personal access token: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return fmt.Errorf("empty token")
	}

	if err := github.WriteTokenFile(target, token); err != nil {
		return err
	}

	cmd.Printf("Token written to %s\n", target)
	return nil
}
