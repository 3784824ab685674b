package commands

import (
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aliskhannn/image-converter/internal/sink"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the images of a folder",
	Long: `Convert every supported image (jpg, jpeg, png, bmp, gif, tiff, webp) under
--input to --format. Outputs go next to the sources or, with --output, into a
mirrored tree under that folder. Press Ctrl+C to stop after the images in
progress.`,
	Example: `  image-converter convert --input ./photos --format png --recursive
  image-converter convert -i ./scans -o ./converted --workers 12 --overwrite`,
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringP("input", "i", "", "input folder (required)")
	f.StringP("output", "o", "", "output folder (default: alongside the sources)")
	f.StringP("format", "f", "jpg", "target format: jpg or png")
	f.Bool("overwrite", false, "replace existing outputs")
	f.BoolP("recursive", "r", false, "include subfolders")
	f.IntP("workers", "w", 6, "number of concurrent workers")

	cobra.CheckErr(bindFlags(v, f, map[string]string{
		"input":     "job.input",
		"output":    "job.output",
		"format":    "job.format",
		"overwrite": "job.overwrite",
		"recursive": "job.recursive",
		"workers":   "job.workers",
	}))

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, _ []string) error {
	if !verbose {
		// the progress bar owns the terminal
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	if strings.TrimSpace(cfg.Job.Input) == "" {
		return errors.New("please select an input folder with --input")
	}

	job, err := cfg.Job.JobConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.service.Run(ctx, job, sink.NewTerminal(cmd.OutOrStdout()))
	return err
}
