// Command mindmate runs the MindMate conversational support service and
// offers an offline crisis-screening tool.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mindmate/internal/config"
)

// app carries state shared between commands once config is loaded.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	root := &cobra.Command{
		Use:           "mindmate",
		Short:         "Vietnamese mental-health companion with crisis screening",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			slog.SetDefault(cfg.Logger(cmd.ErrOrStderr()))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().String("lexicon", "", "crisis lexicon/pattern YAML file (or set CRISIS_LEXICON_FILE)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag("crisis.lexicon_file", root.PersistentFlags().Lookup("lexicon"))
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newServeCmd(a), newAssessCmd(a))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mindmate:", err)
		if isThreshold(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
