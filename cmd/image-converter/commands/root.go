package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/config"
)

var (
	cfgFile string
	verbose bool

	v   = config.New()
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "image-converter",
	Short: "Batch-convert image folders to JPG or PNG",
	Long: `image-converter discovers images under a folder and converts them to JPG
or PNG on a fixed-size worker pool, skipping files that already have an
output or are already in the target format.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zlog.Init()

		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ./config/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// bindFlags makes each flag in keys override the matching config key.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
