package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"resizeimage-go/internal/codec"
	"resizeimage-go/internal/config"
	"resizeimage-go/internal/logger"
	"resizeimage-go/internal/metadata"
	"resizeimage-go/internal/request"
	"resizeimage-go/internal/resample"
	"resizeimage-go/internal/resizer"
	"resizeimage-go/internal/web"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var helpTokens = []string{"help", "--help", "-h", "/?", "?"}

// options holds every flag of one invocation.
type options struct {
	cfgFile          string
	input            string
	output           string
	tolerance        string
	targetSize       string
	percent          string
	verbose          bool
	quiet            bool
	resampler        string
	quality          int
	maxIterations    int
	preserveMetadata bool
	port             int

	stdout io.Writer
	stderr io.Writer
}

// newRootCmd builds the resize command with its inspect and serve subcommands.
func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "resizeimage -i <input> (-s <size> | -p <percent>) [flags]",
		Short: "Utility to resize an image to a target file size",
		Long: `resizeimage scales an image down until its encoded size lands within a
tolerance of a target. The target is either an absolute size (-s 40kb, -s 1.2MB)
or a percentage of the original (-p 60, -p -40%).

The aspect ratio is always preserved and every candidate is resampled from the
original pixels. The output format follows the output file extension.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: unrecognized arguments: %s", request.ErrArgument, strings.Join(args, " "))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResize(cmd, opts)
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show dimensions, format, size and EXIF summary of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0])
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the resize HTTP API",
		Long: `Starts an HTTP server exposing the resize operation.

  GET  /api/health       liveness check
  POST /api/resize       multipart "file" plus targetsize or percent,
                         optional tolerance and format
  GET  /api/statistics   counters since start`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "print more details about the operation")
	rootCmd.PersistentFlags().BoolVar(&opts.quiet, "quiet", false, "suppress non-error output")

	rootCmd.Flags().StringVarP(&opts.input, "input", "i", "", `path to source image, e.g. "/home/maria/img.jpg"`)
	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "where to save the resized file (default: <input>_resized next to the input)")
	rootCmd.Flags().StringVarP(&opts.tolerance, "tolerance", "n", "", "resize within X% of the desired file size (default 5)")
	rootCmd.Flags().StringVarP(&opts.targetSize, "targetsize", "s", "", "desired file size, e.g. 40kb, 0.3mb, 1.2MB")
	rootCmd.Flags().StringVarP(&opts.percent, "percent", "p", "", "desired file size in percent, e.g. 60, 80%, -40%")
	rootCmd.Flags().StringVar(&opts.resampler, "resampler", "", "resampling backend ("+strings.Join(resample.Names(), ", ")+")")
	rootCmd.Flags().IntVar(&opts.quality, "quality", 0, "JPEG quality 1-100")
	rootCmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 0, "maximum number of encode attempts")
	rootCmd.Flags().BoolVar(&opts.preserveMetadata, "preserve-metadata", false, "copy metadata to the output with exiftool")

	serveCmd.Flags().IntVar(&opts.port, "port", 0, "port to run the API on (default from config, 8080)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", request.ErrArgument, err)
	})
	rootCmd.SetOut(opts.stderr)
	rootCmd.SetErr(opts.stderr)

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
	return rootCmd
}

// runResize executes a single resize.
func runResize(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd.Flags(), opts)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	req, err := request.New(request.Raw{
		Input:      opts.input,
		Output:     opts.output,
		TargetSize: opts.targetSize,
		Percent:    opts.percent,
		Tolerance:  opts.tolerance,
		Suffix:     cfg.Output.Suffix,
	}, cfg.Tolerance)
	if err != nil {
		return err
	}

	log := setupLogger(cfg, opts)
	c, err := codec.NewImagingCodec(cfg.CodecOptions())
	if err != nil {
		return err
	}
	r := resizer.NewDefaultResizer(cfg, c, log, opts.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := r.Resize(ctx, req)
	if err != nil {
		return err
	}

	if opts.verbose {
		fmt.Fprintln(opts.stderr, "\n"+res.Stats.GetSummary())
	}

	out, err := filepath.Abs(res.OutputPath)
	if err != nil {
		out = res.OutputPath
	}
	fmt.Fprintf(opts.stdout, "Success. Resized file saved to %s\n", out)
	return nil
}

// runInspect prints what the resizer would see for filePath.
func runInspect(opts *options, filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	imgCfg, name, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %v", codec.ErrCodec, err)
	}

	w := opts.stdout
	fmt.Fprintf(w, "File:       %s\n", filePath)
	fmt.Fprintf(w, "Format:     %s", strings.ToUpper(name))
	if _, err := codec.FormatFromPath(filePath); err != nil {
		fmt.Fprint(w, " (decode only)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Dimensions: %dx%d\n", imgCfg.Width, imgCfg.Height)
	fmt.Fprintf(w, "Size:       %s (%d bytes)\n", humanize.IBytes(uint64(info.Size())), info.Size())

	log := logrus.New()
	log.SetOutput(io.Discard)
	summary, err := metadata.NewExtractor(log).Summary(filePath)
	if err != nil {
		fmt.Fprintln(w, "Metadata:   none")
		return nil
	}

	fmt.Fprintf(w, "Metadata:   %s\n", summary.Source)
	if summary.DateTime != nil {
		fmt.Fprintf(w, "  Taken:       %s\n", summary.DateTime.Format("2006-01-02 15:04:05"))
	}
	if summary.Orientation != 0 {
		fmt.Fprintf(w, "  Orientation: %d (%s)\n", summary.Orientation, metadata.OrientationName(summary.Orientation))
	}
	if summary.Make != "" || summary.Model != "" {
		fmt.Fprintf(w, "  Camera:      %s\n", strings.TrimSpace(summary.Make+" "+summary.Model))
	}
	if summary.Software != "" {
		fmt.Fprintf(w, "  Software:    %s\n", summary.Software)
	}
	return nil
}

// runServe starts the web server and handles graceful shutdown.
func runServe(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd.Flags(), opts)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	port := cfg.Server.Port
	if opts.port > 0 {
		port = opts.port
	}

	log := setupLogger(cfg, opts)
	c, err := codec.NewImagingCodec(cfg.CodecOptions())
	if err != nil {
		return err
	}
	server := web.NewServer(cfg, log, resizer.NewDefaultResizer(cfg, c, log, opts.verbose))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(port); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	fmt.Fprintf(opts.stderr, "Resize API listening on http://localhost:%d (Ctrl+C to stop)\n", port)

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed to start: %w", err)
	case <-sigChan:
	}
	fmt.Fprintln(opts.stderr, "Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if !opts.quiet && server.Totals().Snapshot().Failed > 0 {
		fmt.Fprint(opts.stderr, server.Totals().GetErrorSummary())
	}
	return nil
}

// loadConfig loads configuration and applies CLI overrides.
func loadConfig(flags *pflag.FlagSet, opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.cfgFile)
	if err != nil {
		return nil, err
	}

	if flags.Changed("resampler") {
		cfg.Codec.Resampler = opts.resampler
	}
	if flags.Changed("quality") {
		cfg.Codec.JPEGQuality = opts.quality
	}
	if flags.Changed("max-iterations") {
		cfg.Engine.MaxIterations = opts.maxIterations
	}
	if flags.Changed("preserve-metadata") {
		cfg.Output.PreserveMetadata = opts.preserveMetadata
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config, opts *options) *logrus.Logger {
	loggerCfg := logger.DefaultConfig()
	if cfg.Logging.Level != "" {
		loggerCfg.Level = cfg.Logging.Level
	}
	loggerCfg.FilePath = cfg.Logging.FilePath
	if cfg.Logging.MaxSize > 0 {
		loggerCfg.MaxSize = cfg.Logging.MaxSize
	}
	if cfg.Logging.MaxBackups > 0 {
		loggerCfg.MaxBackups = cfg.Logging.MaxBackups
	}
	if cfg.Logging.MaxAge > 0 {
		loggerCfg.MaxAge = cfg.Logging.MaxAge
	}
	loggerCfg.Compress = cfg.Logging.Compress
	loggerCfg.Console = !opts.quiet
	loggerCfg.Output = opts.stderr

	if opts.verbose {
		loggerCfg.Level = "debug"
	} else if loggerCfg.Level == "info" {
		// resize output goes to stdout, keep the console to warnings
		loggerCfg.Level = "warn"
	}
	if opts.quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetOutput(opts.stderr)
		log.SetLevel(logrus.WarnLevel)
	}

	return log
}

func isHelpToken(arg string) bool {
	arg = strings.ToLower(arg)
	for _, t := range helpTokens {
		if arg == t {
			return true
		}
	}
	return false
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts := &options{stdout: stdout, stderr: stderr}
	rootCmd := newRootCmd(opts)

	if len(args) == 0 || isHelpToken(args[0]) {
		rootCmd.SetOut(stderr)
		_ = rootCmd.Help()
		return 0
	}

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, request.ErrArgument) {
			msg := strings.TrimPrefix(err.Error(), request.ErrArgument.Error()+": ")
			fmt.Fprintf(stderr, "ResizeParserError: %s\n\n", msg)
			_ = rootCmd.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
