package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/mixaill76/auto_ai_vision/internal/converter"
	"github.com/mixaill76/auto_ai_vision/internal/imagecontent"
	"github.com/mixaill76/auto_ai_vision/internal/logger"
	"github.com/mixaill76/auto_ai_vision/internal/segment"
	"github.com/mixaill76/auto_ai_vision/internal/tokencost"
	"github.com/spf13/cobra"
)

func newSegmentCmd(appFn func() *app) *cobra.Command {
	var (
		provider string
		download bool
		tokens   bool
		jobs     int
	)

	cmd := &cobra.Command{
		Use:   "segment <query> [query...]",
		Short: "Split queries into text and image segments",
		Long: strings.TrimSpace(dedent.Dedent(`
			Parses each query and prints it back with images replaced by a
			short description. Queries are parsed concurrently; output keeps
			the argument order.

			With --provider the content is also rendered as the JSON content
			array of that backend (openai, anthropic or gemini).
		`)),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			out := cmd.OutOrStdout()

			var target converter.Provider
			if provider != "" {
				p, err := converter.ParseProvider(provider)
				if err != nil {
					return err
				}
				target = p
			}

			remoteOnly := a.cfg.Segment.Remote && !download
			seg := segment.New(
				segment.WithRemote(remoteOnly),
				segment.WithBaseDir(a.cfg.Segment.BaseDir),
				segment.WithFetcher(a.fetcher),
				segment.WithLogger(a.log),
				segment.WithMetrics(a.metrics),
			)

			results, err := segment.ParseBatch(cmd.Context(), seg, args, jobs)
			if err != nil {
				return err
			}

			for _, res := range results {
				var echo strings.Builder
				for _, s := range res.Segments {
					echo.WriteString(s.String())
				}
				fmt.Fprintln(out, echo.String())

				if tokens {
					n, err := converter.MessageTokens(res.Segments, a.detail, a.version, nil)
					if err != nil {
						return err
					}
					a.metrics.RecordImageTokens(a.version.String(), n-converter.MessageOverhead)
					fmt.Fprintf(out, "tokens: %d (reserve %d)\n", n, converter.TokenReserve(a.cfg.Cost.Model))
				}

				if target != "" {
					body, err := converter.RenderJSON(target, res.Segments, a.detail)
					if err != nil {
						return err
					}
					a.log.Debug("Rendered content", "provider", target, "body", logger.TruncateLongFields(string(body), 200))
					fmt.Fprintln(out, string(body))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Render content for a backend: openai, anthropic or gemini")
	cmd.Flags().BoolVar(&download, "download", false, "Download remote images instead of sniffing their headers")
	cmd.Flags().BoolVar(&tokens, "tokens", false, "Print the estimated image token cost of each query")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "Maximum number of queries parsed at once")
	return cmd
}

func newSniffCmd(appFn func() *app) *cobra.Command {
	var download bool

	cmd := &cobra.Command{
		Use:   "sniff <url> [url...]",
		Short: "Print the dimensions of remote images",
		Long: strings.TrimSpace(dedent.Dedent(`
			Reads only as much of each image as needed to learn its
			dimensions. With --download the whole image is fetched and decoded.
		`)),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			out := cmd.OutOrStdout()

			for _, url := range args {
				if download {
					img, err := imagecontent.FromURL(cmd.Context(), a.fetcher, url, false)
					if err != nil {
						return err
					}
					w, h, err := img.Size()
					if err != nil {
						return err
					}
					mimeType, err := img.MIME()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\t%dx%d\t%s\n", url, w, h, mimeType)
					continue
				}

				meta, err := a.fetcher.Sniff(cmd.Context(), url)
				if err != nil {
					return err
				}
				if !meta.Resolved {
					fmt.Fprintf(out, "%s\tunresolved\t%s\t%d bytes read\n", url, meta.MIME, meta.BytesRead)
					continue
				}
				fmt.Fprintf(out, "%s\t%dx%d\t%s\t%d bytes read\n", url, meta.Width, meta.Height, meta.MIME, meta.BytesRead)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&download, "download", false, "Download and decode the whole image")
	return cmd
}

func newCostCmd(appFn func() *app) *cobra.Command {
	var version, detail string

	cmd := &cobra.Command{
		Use:   "cost <width> <height>",
		Short: "Estimate the token cost of an image size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()

			width, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid width %q: %w", args[0], err)
			}
			height, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid height %q: %w", args[1], err)
			}

			v, d := a.version, a.detail
			if version != "" {
				if v, err = tokencost.ParseVersion(version); err != nil {
					return err
				}
			}
			if detail != "" {
				if d, err = tokencost.ParseDetail(detail); err != nil {
					return err
				}
			}

			n, err := tokencost.Estimate(width, height, d, v)
			if err != nil {
				return err
			}
			a.metrics.RecordImageTokens(v.String(), n)
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Cost formula version: a or b (default from config)")
	cmd.Flags().StringVar(&detail, "detail", "", "Image detail: auto, low or high (default from config)")
	return cmd
}
