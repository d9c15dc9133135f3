package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/lumina/internal"
	"github.com/starford/lumina/internal/export"
	pkgconfig "github.com/starford/lumina/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")
	found, err := pkgconfig.LoadOptional(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", path))
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func renderProject(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("usage: lumina render [flags] <project-id>")
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	eo := export.Options{
		Format:  export.Format(cmd.String("format")),
		Quality: int(cmd.Int("quality")),
		Width:   int(cmd.Int("width")),
	}
	res, err := internal.RenderProject(ctx, id, cmd.String("out"), eo, opts...)
	if err != nil {
		var ee *export.Error
		if errors.As(err, &ee) {
			return fmt.Errorf("%s (%w)", ee.UserMessage(), err)
		}
		return err
	}
	fmt.Printf("%s %dx%d %s\n", res.Format, res.Width, res.Height, res.Location)
	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:    "lumina",
		Usage:   "Photo editor backend: layer compositing, filters and export",
		Version: version,
		Action:  serve,
		Flags:   []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:      "render",
				Usage:     "Export a saved project to an image file",
				ArgsUsage: "<project-id>",
				Action:    renderProject,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "jpg, png, heic, tiff or bmp"},
					&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Usage: "1-100"},
					&cli.IntFlag{Name: "width", Aliases: []string{"w"}, Usage: "output width (0 keeps the canvas size)"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "also copy the export to this file"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
