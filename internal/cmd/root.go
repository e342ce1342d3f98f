package cmd

import (
	"strings"

	"github.com/Mikepicker/mailslot/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mailslot",
	Short: "In-memory mailslot message exchange daemon",
	Long: `Mailslot serves a fixed set of indexed, bounded in-memory mailboxes
over a line-based TCP protocol. Each mailslot holds up to a configured
number of fixed-size messages, is held exclusively by a single opener at
a time, and pops messages in LIFO order (newest first) unless configured
for FIFO.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/mailslot/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/mailslot")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("MAILSLOT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., MAILSLOT_SERVER_LISTEN for server.listen
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
