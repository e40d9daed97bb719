package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-go-golems/chronicle/pkg/history"
	"github.com/go-go-golems/chronicle/pkg/settings"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Git-backed versioned conversation history store",
	Long: `chronicle keeps one git repository per conversation, storing the
message log, binary attachments, and instruction files. Every save is a
snapshot; branches let a conversation fork and merge back by divergence.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/chronicle/config.yaml)")
	rootCmd.PersistentFlags().String("base-dir", "history", "base directory for conversation repositories")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64P("conversation", "c", 0, "conversation id")

	_ = viper.BindPFlag("base-dir", rootCmd.PersistentFlags().Lookup("base-dir"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newConversationsCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newClearCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newCommitCommand())
	rootCmd.AddCommand(newLogCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newBranchCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newPromptCommand())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "chronicle"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("CHRONICLE")
	viper.AutomaticEnv()

	viper.SetDefault("default-model", "")

	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	}
}

func openRepository() (*history.Repository, error) {
	return history.NewRepository(viper.GetString("base-dir"))
}

func openSettings() *settings.Service {
	return settings.NewService(filepath.Join(viper.GetString("base-dir"), "config.json"))
}

func conversationID(cmd *cobra.Command) (int64, error) {
	id, err := cmd.Flags().GetInt64("conversation")
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("a conversation id is required (use --conversation)")
	}
	return id, nil
}
