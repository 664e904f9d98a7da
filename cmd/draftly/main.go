// Command draftly generates a long-form blog post for a topic and saves it,
// with its metadata, to the output directory.
//
//	draftly -topic "Intermittent Fasting" -platform linkedin
//	draftly -topic "Go 1.25 release" -research -config draftly.yaml
//
// Exit codes: 0 on success, 1 when generation fails or no topic is given,
// 2 when the configuration is invalid.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/leofalp/draftly/internal/config"
	"github.com/leofalp/draftly/internal/output"
	"github.com/leofalp/draftly/internal/utils"
	"github.com/leofalp/draftly/patterns/blog"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2

	previewLength = 500
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type cliFlags struct {
	topic      string
	platform   string
	research   bool
	configPath string
	outputDir  string
	noPreview  bool
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, error) {
	var parsed cliFlags

	flags := flag.NewFlagSet("draftly", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&parsed.topic, "topic", "", "topic to write about (prompted when empty)")
	flags.StringVar(&parsed.platform, "platform", blog.DefaultPlatform, "target platform: "+strings.Join(blog.Platforms(), ", "))
	flags.BoolVar(&parsed.research, "research", false, "force web research")
	flags.StringVar(&parsed.configPath, "config", "", "YAML config file (default: draftly.yaml in the working directory)")
	flags.StringVar(&parsed.outputDir, "output", "", "output directory (overrides output_dir)")
	flags.BoolVar(&parsed.noPreview, "no-preview", false, "do not print a preview of the document")

	err := flags.Parse(args)
	return parsed, err
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cli, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitConfigError
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error:\n%v\n", err)
		return exitConfigError
	}

	topic := strings.TrimSpace(cli.topic)
	if topic == "" {
		topic = promptTopic(stdin, stdout)
	}
	if topic == "" {
		fmt.Fprintln(stderr, "a topic is required")
		return exitFailure
	}

	application, err := newApp(cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "startup failed: %v\n", err)
		return exitFailure
	}
	defer application.Close()

	fmt.Fprintf(stdout, "Generating a %s post about %q...\n", cli.platform, topic)
	result, err := application.workflow.Run(ctx, blog.Request{
		Topic:          topic,
		Platform:       cli.platform,
		EnableResearch: cli.research,
	})
	if err != nil {
		fmt.Fprintf(stderr, "generation failed: %v\n", err)
		return exitFailure
	}

	paths, err := output.Save(cfg.OutputDir, output.Artifact{
		Content:  result.FinalDocument,
		Title:    result.Metadata.Title,
		Metadata: result.Metadata,
	})
	if err != nil {
		fmt.Fprintf(stderr, "saving failed: %v\n", err)
		return exitFailure
	}

	printSummary(stdout, result, paths, !cli.noPreview)
	return exitOK
}

// loadConfig loads and validates the configuration. Flags override the
// loaded values.
func loadConfig(cli cliFlags) (*config.Config, error) {
	var opts []config.Option
	if cli.configPath != "" {
		opts = append(opts, config.WithConfigFile(cli.configPath))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if cli.outputDir != "" {
		cfg.OutputDir = cli.outputDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func promptTopic(stdin io.Reader, stdout io.Writer) string {
	fmt.Fprint(stdout, "Topic: ")
	scanner := bufio.NewScanner(stdin)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func printSummary(w io.Writer, result *blog.Result, paths output.Paths, preview bool) {
	metadata := result.Metadata

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Title:      %s\n", metadata.Title)
	fmt.Fprintf(w, "Words:      %d\n", metadata.WordCount)
	fmt.Fprintf(w, "Sections:   %d\n", metadata.Sections)
	fmt.Fprintf(w, "Time:       %.2fs\n", metadata.GenerationTime)
	fmt.Fprintf(w, "LLM calls:  %d (%d tokens)\n", metadata.Usage.Calls, metadata.Usage.TotalTokens)
	if metadata.EstimatedCostUSD != nil {
		fmt.Fprintf(w, "Cost:       $%.4f\n", *metadata.EstimatedCostUSD)
	}
	fmt.Fprintf(w, "Saved to:   %s\n", paths.Document)
	fmt.Fprintf(w, "Metadata:   %s\n", paths.Metadata)

	if !preview {
		return
	}
	fmt.Fprintln(w, "\n--- Preview ---")
	fmt.Fprintln(w, utils.TruncateRunes(result.FinalDocument, previewLength))
	if len([]rune(result.FinalDocument)) > previewLength {
		fmt.Fprintln(w, "...")
	}
}
