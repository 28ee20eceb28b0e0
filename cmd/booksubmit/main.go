package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/book-upload-relay/client/bookform"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

type options struct {
	title     string
	author    string
	category  string
	summary   string
	coverPath string
	pdfPath   string
	endpoint  string
	catalog   string
	timeout   time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "booksubmit",
		Short: "Upload a book cover and PDF through the relay and print the book record",
		Example: `  booksubmit --title "Clean Code" --author "Robert Martin" --category Programming \
    --summary "Craftsmanship." --cover cover.png --pdf book.pdf
  BOOK_RELAY_URL=https://site.example/.netlify/functions/upload booksubmit ...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err := run(ctx, opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, red("upload failed: "+err.Error()))
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.title, "title", "", "Book title")
	flags.StringVar(&opts.author, "author", "", "Book author")
	flags.StringVar(&opts.category, "category", "", "Book category")
	flags.StringVar(&opts.summary, "summary", "", "Short summary")
	flags.StringVar(&opts.coverPath, "cover", "", "Cover image (JPG or PNG)")
	flags.StringVar(&opts.pdfPath, "pdf", "", "Book file (PDF)")
	flags.StringVar(&opts.endpoint, "endpoint", envOr("BOOK_RELAY_URL", bookform.DefaultEndpoint), "Relay upload URL")
	flags.StringVar(&opts.catalog, "catalog", os.Getenv("BOOK_CATALOG_URL"), "Server base URL to register the record with (optional)")
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Overall timeout")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	form := bookform.Form{
		Title:    opts.title,
		Author:   opts.author,
		Category: opts.category,
		Summary:  opts.summary,
	}

	// A missing path is left nil so Validate reports it in order.
	if opts.coverPath != "" {
		cover, err := bookform.OpenFile(opts.coverPath)
		if err != nil {
			return err
		}
		defer cover.Close()
		form.Cover = cover
	}
	if opts.pdfPath != "" {
		pdf, err := bookform.OpenFile(opts.pdfPath)
		if err != nil {
			return err
		}
		defer pdf.Close()
		form.PDF = pdf
	}

	submitter := bookform.NewSubmitter(opts.endpoint, bookform.WithProgress(printProgress))
	rec, err := submitter.Submit(ctx, form)
	if err != nil {
		return err
	}

	if opts.catalog != "" {
		saved, err := bookform.NewRegistrar(opts.catalog, nil).Register(ctx, rec)
		if err != nil {
			return fmt.Errorf("record created but not registered: %w", err)
		}
		rec = saved
		fmt.Fprintln(os.Stderr, gray("registered "+rec.ID))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func printProgress(p bookform.Progress) {
	switch p.Stage {
	case bookform.StageFailed:
		return
	case bookform.StageDone:
		fmt.Fprintln(os.Stderr, green(fmt.Sprintf("[%3d%%] %s", p.Percent, p.Stage)))
	default:
		fmt.Fprintln(os.Stderr, gray(fmt.Sprintf("[%3d%%] %s", p.Percent, p.Stage)))
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
