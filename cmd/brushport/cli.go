package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/brushport/internal/config"
	"github.com/hpungsan/brushport/internal/errors"
	"github.com/hpungsan/brushport/internal/mcp"
	"github.com/hpungsan/brushport/internal/ops"
	"github.com/hpungsan/brushport/internal/report"
)

// appState carries what the commands share. Fields left nil are filled in
// by the app's Before hook; tests preset them.
type appState struct {
	baseDir     string
	cfg         *config.Config
	logger      *slog.Logger
	stdin       io.Reader
	interactive bool
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(st *appState) *cli.App {
	app := &cli.App{
		Name:    "brushport",
		Usage:   "Convert Clip Studio Paint sub-tools into Procreate brushes",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Log debug detail to stderr"},
			&cli.StringFlag{Name: "config-dir", Usage: "Global config directory (default: ~/.brushport)"},
		},
		Before: func(c *cli.Context) error {
			return st.init(c)
		},
		Commands: []*cli.Command{
			convertCmd(st),
			inspectCmd(st),
			serveCmd(st),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func (st *appState) init(c *cli.Context) error {
	if dir := c.String("config-dir"); dir != "" {
		st.baseDir = dir
	}
	if st.logger == nil {
		level := slog.LevelInfo
		if c.Bool("verbose") {
			level = slog.LevelDebug
		}
		st.logger = slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
	}
	if st.cfg == nil {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		cfg, err := config.LoadWithRepo(st.baseDir, cwd)
		if err != nil {
			return outputError(errors.NewInvalidRequest(fmt.Sprintf("failed to load config: %v", err)))
		}
		st.cfg = cfg
	}
	if st.stdin == nil {
		st.stdin = os.Stdin
	}
	return nil
}

// convertCmd creates the convert command.
func convertCmd(st *appState) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a .sut file into .brush files (and a .brushset for several stamps)",
		ArgsUsage: "<input.sut> <outdir>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Seed.brush template (default: config template_path, then next to the binary, then the config dir)"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "Bundles built concurrently (default: config workers)"},
			&cli.BoolFlag{Name: "skip-stamps", Usage: "Do not write the raw stamp PNGs"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "Output format: text|json|markdown"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 2 {
				return outputError(errors.NewInvalidRequest("usage: brushport convert <input.sut> <outdir>"))
			}
			source, outDir := c.Args().Get(0), c.Args().Get(1)

			if c.NArg() == 0 && st.interactive {
				var err error
				source, outDir, err = promptPaths(st.stdin, c.App.ErrWriter)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
			}
			if source == "" || outDir == "" {
				return outputError(errors.NewInvalidRequest("usage: brushport convert <input.sut> <outdir>"))
			}

			format := c.String("format")
			if format != "text" && format != "json" && format != "markdown" {
				return outputError(errors.NewInvalidRequest("format must be one of: text, json, markdown"))
			}

			cfg := *st.cfg
			if c.IsSet("workers") {
				cfg.Workers = c.Int("workers")
			}
			if c.Bool("skip-stamps") {
				cfg.SkipStamps = true
			}

			templatePath, err := ops.ResolveTemplate(c.String("template"), &cfg, st.baseDir)
			if err != nil {
				return outputError(err)
			}

			var progress io.Writer
			if format == "text" {
				progress = c.App.Writer
			}

			output, err := ops.Convert(c.Context, &cfg, ops.ConvertInput{
				Source:       source,
				OutDir:       outDir,
				TemplatePath: templatePath,
				Logger:       st.logger,
				Out:          progress,
			})
			if err != nil {
				return outputError(err)
			}

			switch format {
			case "json":
				return outputJSON(c.App.Writer, output)
			case "markdown":
				_, err := io.WriteString(c.App.Writer, report.ConvertMarkdown(output))
				return err
			}
			return nil
		},
	}
}

// inspectCmd creates the inspect command.
func inspectCmd(st *appState) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Report the stamps and mapped parameters of a .sut file without writing brushes",
		ArgsUsage: "<input.sut>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Check the mapped fields against this Seed.brush"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|markdown|html"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: brushport inspect <input.sut>"))
			}
			format := c.String("format")
			if format != "json" && format != "markdown" && format != "html" {
				return outputError(errors.NewInvalidRequest("format must be one of: json, markdown, html"))
			}

			// Without --template, check against whichever template convert would use.
			templatePath := c.String("template")
			if templatePath == "" {
				if p, err := ops.ResolveTemplate("", st.cfg, st.baseDir); err == nil {
					templatePath = p
				}
			}

			output, err := ops.Inspect(c.Context, ops.InspectInput{
				Source:       c.Args().First(),
				TemplatePath: templatePath,
				Logger:       st.logger,
			})
			if err != nil {
				return outputError(err)
			}

			switch format {
			case "markdown":
				_, err := io.WriteString(c.App.Writer, report.InspectMarkdown(output))
				return err
			case "html":
				page, err := report.HTML(filepath.Base(output.Source), report.InspectMarkdown(output))
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				_, err = c.App.Writer.Write(page)
				return err
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// serveCmd creates the serve-mcp command.
func serveCmd(st *appState) *cli.Command {
	return &cli.Command{
		Name:  "serve-mcp",
		Usage: "Serve brush_convert and brush_inspect over MCP on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(mcp.Options{
				Config:  st.cfg,
				BaseDir: st.baseDir,
				Version: Version,
				Logger:  st.logger,
			})
		},
	}
}

// Helper functions

// outputJSON marshals result to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if bErr, ok := err.(*errors.BrushError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", bErr.Code, bErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// promptPaths asks for the source file and output directory. An empty
// output answer means the directory holding the source.
func promptPaths(in io.Reader, out io.Writer) (source, outDir string, err error) {
	sc := bufio.NewScanner(in)
	ask := func(label string) (string, error) {
		fmt.Fprintf(out, "%s: ", label)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("no answer for %q", label)
		}
		return cleanPath(sc.Text()), nil
	}

	if source, err = ask("Source .sut file"); err != nil {
		return "", "", err
	}
	if source == "" {
		return "", "", fmt.Errorf("source file is required")
	}
	if outDir, err = ask("Output directory [" + filepath.Dir(source) + "]"); err != nil {
		return "", "", err
	}
	if outDir == "" {
		outDir = filepath.Dir(source)
	}
	return source, outDir, nil
}

// cleanPath trims whitespace and the quotes a terminal adds when a file is
// dropped onto it.
func cleanPath(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return s
}
