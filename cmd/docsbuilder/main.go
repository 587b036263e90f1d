package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/savioxavier/termlink"
	"github.com/spf13/cobra"

	"github.com/datastic/docsbuilder/internal/build"
	"github.com/datastic/docsbuilder/pkg/client"
	"github.com/datastic/docsbuilder/pkg/config"
	"github.com/datastic/docsbuilder/pkg/llm"
)

type options struct {
	configFile  string
	verbose     bool
	showMetrics bool
	lines       string
	out         string
	registry    *prometheus.Registry
}

func main() {
	opts := &options{registry: prometheus.NewRegistry()}

	rootCmd := &cobra.Command{
		Use:           "docsbuilder",
		Version:       build.Version,
		Short:         "docsbuilder documents source code with a chat completion model",
		Long:          "Sends a source file or a line range of it to a chat completion API and shows the generated documentation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.showMetrics {
				return dumpMetrics(cmd.ErrOrStderr(), opts.registry)
			}
			return nil
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "Config file (default: $HOME/.docsbuilder.yaml when present)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")
	pf.BoolVar(&opts.showMetrics, "metrics", false, "Print request metrics to stderr on exit")
	pf.StringP("api-key", "k", "", "API key (env: DOCSBUILDER_API_KEY)")
	pf.StringP("base-url", "u", llm.DefaultBaseURL, "Completion API base URL")
	pf.StringP("model", "m", "gpt-4", "Model name")
	pf.Int("max-tokens", 500, "Max tokens to generate")
	pf.Float64("temperature", 0.5, "Sampling temperature within [0,1]")
	pf.StringP("documentation-type", "t", "docstrings", "docstrings, detailed_docstrings or external_file")
	pf.StringSliceP("headers", "H", []string{}, "Extra request headers (K=V)")
	pf.Int("max-concurrent", llm.DefaultMaxConcurrent, "Max simultaneous API requests")
	pf.Int("retry-max-attempts", 3, "Max attempts per request")
	pf.Duration("retry-base-delay", time.Second, "Base of the exponential retry delay")

	generateCmd := &cobra.Command{
		Use:   "generate [FILE|-]",
		Short: "Generate documentation for a file and print it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, args)
		},
	}
	generateCmd.Flags().StringVarP(&opts.lines, "lines", "l", "", "Line range to document (e.g. 10:40), whole file by default")
	generateCmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write documentation to this file instead of stdout")

	viewCmd := &cobra.Command{
		Use:   "view [FILE|-]",
		Short: "Generate documentation and browse it interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, opts, args)
		},
	}
	viewCmd.Flags().StringVarP(&opts.lines, "lines", "l", "", "Line range to document (e.g. 10:40), whole file by default")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List models available for the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd, opts)
		},
	}

	rootCmd.AddCommand(generateCmd, viewCmd, modelsCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}

type logReporter struct {
	log zerolog.Logger
}

func (r *logReporter) Report(msg string) {
	r.log.Info().Msg(msg)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func newDocumenter(cmd *cobra.Command, opts *options, reporter bool) (client.Documenter, error) {
	settings, err := config.Load(opts.configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log := newLogger(opts.verbose)
	llmClient := llm.NewOpenAI(settings.ClientConfig(),
		llm.WithLogger(log),
		llm.WithMetrics(llm.NewMetrics(opts.registry)),
	)
	var clientOpts []client.Option
	if reporter {
		clientOpts = append(clientOpts, client.WithReporter(&logReporter{log: log}))
	}
	return client.NewDocumenter(settings, llmClient, clientOpts...), nil
}

func readSource(cmd *cobra.Command, opts *options, args []string) (client.Source, error) {
	name := "-"
	if len(args) > 0 {
		name = args[0]
	}
	var (
		content []byte
		err     error
	)
	if name == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		name = "stdin"
	} else {
		content, err = os.ReadFile(name)
	}
	if err != nil {
		return client.Source{}, errors.Wrapf(err, "failed to read %s", name)
	}
	selection, err := client.ParseSelection(opts.lines)
	if err != nil {
		return client.Source{}, err
	}
	return client.Source{Name: name, Content: string(content), Selection: selection}, nil
}

func runGenerate(cmd *cobra.Command, opts *options, args []string) error {
	source, err := readSource(cmd, opts, args)
	if err != nil {
		return err
	}
	documenter, err := newDocumenter(cmd, opts, true)
	if err != nil {
		return err
	}
	doc, err := documenter.Generate(cmd.Context(), source)
	if err != nil {
		return err
	}
	if !doc.Result.OK() {
		return doc.Result.Err()
	}
	if opts.out == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), doc.Text)
		return err
	}
	if err := os.WriteFile(opts.out, []byte(doc.Text+"\n"), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", opts.out)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Documentation saved to "+termlink.ColorLink(opts.out, "file://"+opts.out, "italic green"))
	return nil
}

func runView(cmd *cobra.Command, opts *options, args []string) error {
	source, err := readSource(cmd, opts, args)
	if err != nil {
		return err
	}
	documenter, err := newDocumenter(cmd, opts, false)
	if err != nil {
		return err
	}
	outDir, err := os.MkdirTemp(os.TempDir(), "docsbuilder")
	if err != nil {
		return errors.Wrapf(err, "failed to init temp dir")
	}
	p := tea.NewProgram(client.NewPanel(cmd.Context(), documenter, source, outDir), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func runModels(cmd *cobra.Command, opts *options) error {
	documenter, err := newDocumenter(cmd, opts, opts.verbose)
	if err != nil {
		return err
	}
	models, err := documenter.Models(cmd.Context())
	if err != nil {
		return err
	}
	for _, model := range models {
		fmt.Fprintln(cmd.OutOrStdout(), model)
	}
	return nil
}

func dumpMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return errors.Wrapf(err, "failed to gather metrics")
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return err
		}
	}
	return nil
}
