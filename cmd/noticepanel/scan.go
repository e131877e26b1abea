package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/noticepanel/page/htmldoc"
	"github.com/hazyhaar/noticepanel/panel"
)

var (
	scanFormat    string
	scanBootstrap string
)

var scanCmd = &cobra.Command{
	Use:   "scan <file.html>",
	Short: "Collect the notices of a saved page and print the panel",
	Long: `scan runs one reconciliation over a saved admin page and prints the
resulting panel as markdown, a JSON view, or the rewritten page (html).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if scanBootstrap != "" {
			cfg.Bridge.BootstrapFile = scanBootstrap
			cfg.Bridge.BootstrapURL = ""
		}
		boot, err := loadBootstrap(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := htmldoc.Parse(f)
		if err != nil {
			return err
		}
		if !doc.Exists(panel.PanelSelector) {
			shell, err := panel.ShellHTML(boot.I18n, boot.Settings)
			if err != nil {
				return err
			}
			if err := doc.Append("body", shell); err != nil {
				return fmt.Errorf("inject panel: %w", err)
			}
		}

		c, err := panel.Mount(cmd.Context(), panel.Config{
			Document:          doc,
			Frames:            &panel.ManualFrames{},
			Renderer:          panel.DOMRenderer(doc),
			Settings:          boot.Settings,
			I18n:              boot.I18n,
			Dismissed:         boot.Dismissed,
			Root:              cfg.Panel.Root,
			HighlightDuration: cfg.Panel.Highlight,
			Logger:            logger,
		})
		if err != nil {
			return err
		}
		defer c.Unmount()

		out := cmd.OutOrStdout()
		switch scanFormat {
		case "markdown", "md":
			md, err := panel.RenderMarkdown(c.View())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, md)
			return err
		case "json":
			return panel.JSONLines(out).Render(c.View())
		case "html":
			page, err := doc.HTML()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, page)
			return err
		}
		return errors.New("unknown format " + scanFormat)
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "markdown", "output: markdown, json, html")
	scanCmd.Flags().StringVar(&scanBootstrap, "bootstrap", "", "bootstrap JSON file (settings, labels, dismissed ids)")
	rootCmd.AddCommand(scanCmd)
}
