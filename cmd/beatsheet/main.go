package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/beatsheet/internal"
	"github.com/starford/beatsheet/internal/document"
	"github.com/starford/beatsheet/internal/export"
	"github.com/starford/beatsheet/internal/outline"
	pkgconfig "github.com/starford/beatsheet/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runRelay(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if p := cmd.Int("port"); p > 0 {
		cfg.Relay.Port = int(p)
	}
	return internal.RunRelay(ctx, internal.WithConfig(cfg))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func generate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	brief := outline.Brief{
		Premise:     cmd.String("premise"),
		BeatsPerAct: int(cmd.Int("beats")),
	}
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		text, err := document.Extract(data, document.DetectType(filepath.Base(path), ""))
		if err != nil {
			return fmt.Errorf("extract %s: %w", path, err)
		}
		brief.Document = text
	}

	out, err := internal.Generate(ctx, brief, internal.WithConfig(cfg))
	if err != nil {
		return err
	}

	doc := export.Document{Title: cmd.String("title"), Outline: out}
	switch cmd.String("format") {
	case "markdown":
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("markdown renderer: %w", err)
		}
		rendered, err := r.Render(export.Markdown(doc))
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		_, err = fmt.Fprint(os.Stdout, rendered)
		return err
	case "text", "":
		_, err = fmt.Fprintln(os.Stdout, out.Text)
		return err
	}
	return fmt.Errorf("unknown format %q (want text or markdown)", cmd.String("format"))
}

func main() {
	cmd := &cli.Command{
		Name:   "beatsheet",
		Usage:  "Three-act story outline generator with revision history and export",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("BEATSHEET_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serve,
			},
			{
				Name:   "relay",
				Usage:  "Run the demo story relay that answers with a canned outline",
				Action: runRelay,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "Listen port (overrides relay.port)"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve outline tools over MCP stdio",
				Action: runMCP,
			},
			{
				Name:   "generate",
				Usage:  "Generate one outline and print it",
				Action: generate,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "premise", Aliases: []string{"p"}, Usage: "Story idea"},
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Source document (txt, pdf, docx)"},
					&cli.IntFlag{Name: "beats", Aliases: []string{"b"}, Usage: "Beats per act (2-6)"},
					&cli.StringFlag{Name: "title", Usage: "Heading for markdown output"},
					&cli.StringFlag{Name: "format", Value: "text", Usage: "Output format: text or markdown"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
