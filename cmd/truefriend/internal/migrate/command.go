package migrate

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/truefriend/cmd/truefriend/internal"
	"github.com/tinyland-inc/truefriend/pkg/store"
	"github.com/tinyland-inc/truefriend/pkg/vault"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run one-time data migrations",
		Example: `  truefriend migrate encrypt-logs
  truefriend migrate encrypt-logs --config /path/to/config.json`,
	}

	var configPath string

	encryptCmd := &cobra.Command{
		Use:   "encrypt-logs",
		Short: "Encrypt plaintext conversation logs in place",
		Args:  cobra.NoArgs,
		Example: `  truefriend migrate encrypt-logs
  truefriend migrate encrypt-logs --config ~/.truefriend/config.json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runEncryptLogs(configPath)
		},
	}
	encryptCmd.Flags().StringVar(&configPath, "config", "",
		"Config file path (default: ~/.truefriend/config.json)")

	cmd.AddCommand(encryptCmd)

	return cmd
}

// runEncryptLogs rewrites any log rows written before encryption was
// enabled. Rows already carrying the ciphertext prefix are untouched,
// so re-running is safe.
func runEncryptLogs(configPath string) error {
	cfg, err := internal.LoadConfigFrom(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	v, err := vault.New(cfg.Data.EncryptionKey)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Data.DBPath(), v)
	if err != nil {
		return err
	}
	defer st.Close()

	migrated, err := st.EncryptPlaintextLogs()
	if err != nil {
		return err
	}

	fmt.Printf("✓ Encrypted %d plaintext rows in %s\n", migrated, filepath.Base(cfg.Data.DBPath()))
	return nil
}
