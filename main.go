package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/felo/eml2text/internal/config"
	"github.com/felo/eml2text/internal/converter"
	"github.com/felo/eml2text/internal/journal"
	"github.com/felo/eml2text/internal/mimeword"
	"github.com/felo/eml2text/internal/render"
)

// errInputsFailed is returned when at least one input could not be
// converted. The individual failures are already logged.
var errInputsFailed = errors.New("one or more inputs failed")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := newLogger(stderr)

	cmd := newRootCommand(logger, stdin)
	// cobra falls back to os.Args when given nil
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errInputsFailed) {
			logger.Error(err)
		}
		return 1
	}
	return 0
}

func newLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

func newRootCommand(logger *logrus.Logger, stdin io.Reader) *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "eml2text [flags] [file|dir ...]",
		Short: "Print email messages as readable text",
		Long: `eml2text decodes MIME messages and prints their headers and parts as text.
Encoded headers (From, To, Cc, Bcc, Subject) and part bodies are decoded,
multipart messages are flattened and attachments are annotated with their
filename. Without arguments a single message is read from standard input.

An input file named history must be given with a path, as in ./history,
since a bare history runs the history command.`,
		Args:              cobra.ArbitraryArgs,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if cfg.Verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
			return convert(cfg, logger, args, stdin, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.Output, "output", "o", cfg.Output, `output path, "-" or "stdout" for standard output`)
	flags.StringVar(&cfg.OutputEncoding, "encoding", cfg.OutputEncoding, "output encoding")
	flags.StringVar(&cfg.ErrorPolicy, "errors", cfg.ErrorPolicy, "unencodable output policy: ignore|replace|strict")
	flags.BoolVar(&cfg.Mbox, "mbox", false, "treat every input as an mbox file holding many messages")
	flags.StringVar(&cfg.JournalPath, "journal", "", "record every conversion in a SQLite journal")
	flags.Lookup("journal").NoOptDefVal = config.DefaultJournalPath()
	flags.BoolVar(&cfg.SkipConverted, "skip-converted", false, "with --journal, skip inputs whose content was already converted")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newHistoryCommand(logger))
	return cmd
}

// convert runs one conversion over args, or over stdin when args is empty
func convert(cfg *config.Config, logger *logrus.Logger, args []string, stdin io.Reader, stdout io.Writer) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	out, err := openOutput(cfg, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()

	dec := mimeword.NewDecoder()
	renderer := render.New(render.Options{Encoding: cfg.OutputEncoding, ErrorPolicy: policy}, dec)
	conv := converter.New(renderer, dec, logger).WithMbox(cfg.Mbox)

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()

		logger.Debugf("Journal opened at: %s (run %s)", cfg.JournalPath, j.RunID())
		conv.WithJournal(j, cfg.SkipConverted)
	}

	var result *converter.Result
	if len(args) == 0 {
		result, err = conv.ConvertStream(out, converter.StdinName, stdin)
	} else {
		result, err = conv.ConvertFiles(out, args)
	}
	if err != nil {
		return err
	}

	if !result.OK() {
		return errInputsFailed
	}
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// openOutput opens the output sink once for the whole run
func openOutput(cfg *config.Config, stdout io.Writer) (io.WriteCloser, error) {
	if cfg.UsesStdout() {
		return nopWriteCloser{stdout}, nil
	}

	f, err := os.Create(cfg.Output)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("permission error for write file %s: %w", cfg.Output, err)
		}
		return nil, fmt.Errorf("failed to open output: %w", err)
	}
	return f, nil
}

func newHistoryCommand(logger *logrus.Logger) *cobra.Command {
	var (
		journalPath string
		limit       int
		search      string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return printHistory(cmd.OutOrStdout(), journalPath, search, limit)
		},
	}

	cmd.Flags().StringVar(&journalPath, "journal", config.DefaultJournalPath(), "journal database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries to list")
	cmd.Flags().StringVar(&search, "search", "", "only list entries whose subject or path matches")
	return cmd
}

func printHistory(w io.Writer, journalPath, search string, limit int) error {
	if _, err := os.Stat(journalPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("journal %s not found", journalPath)
		}
		return fmt.Errorf("failed to open journal: %w", err)
	}

	j, err := journal.Open(journalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	var entries []*journal.Entry
	if search != "" {
		entries, err = j.Search(search, limit)
	} else {
		entries, err = j.List(limit, 0)
	}
	if err != nil {
		return err
	}

	total, err := j.Count()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No conversions recorded")
		return nil
	}

	for _, e := range entries {
		when := "-"
		if e.ConvertedAt.Valid {
			when = humanize.Time(e.ConvertedAt.Time)
		}
		fmt.Fprintf(w, "%-16s %-9s %8s  %s", when, e.Status, humanize.Bytes(uint64(e.FileSize)), e.FilePath)
		if e.Subject != "" {
			fmt.Fprintf(w, "  %q", e.Subject)
		}
		if e.Error != "" {
			fmt.Fprintf(w, "  (%s)", e.Error)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d of %s conversions\n", len(entries), humanize.Comma(int64(total)))
	return nil
}
