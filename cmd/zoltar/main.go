// Command zoltar works with a remote Zoltar forecast repository.
//
// Usage:
//   zoltar projects
//   zoltar models --project "My Project"
//   zoltar download --project "My Project" --model ensemble --timezero 2020-05-04 --out f.csv
//   zoltar upload --project "My Project" --model ensemble --timezero 2020-05-04 --file f.json
//   zoltar delete-forecast --project "My Project" --model ensemble --timezero 2020-05-04
//   zoltar create-model --project "My Project" --name baseline --abbreviation bl --team-name "My Team"
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/BrettBoval/zoltpy/internal/config"
	"github.com/BrettBoval/zoltpy/pkg/logger"
	"github.com/BrettBoval/zoltpy/pkg/predictions"
	"github.com/BrettBoval/zoltpy/pkg/zoltar"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // nothing left to report to

	app := &cli.App{
		Name:  "zoltar",
		Usage: "query and manage forecasts in a Zoltar repository",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Usage:   "server base URL, without a trailing slash",
				EnvVars: []string{"ZOLTAR_HOST"},
			},
			&cli.StringFlag{
				Name:    "username",
				Usage:   "account username",
				EnvVars: []string{"ZOLTAR_USERNAME"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "account password",
				EnvVars: []string{"ZOLTAR_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"ZOLTAR_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			projectsCommand(),
			modelsCommand(),
			downloadCommand(),
			uploadCommand(),
			deleteForecastCommand(),
			createModelCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect layers the command line over the file/env configuration, applies
// the log level, and returns an authenticated connection.
func connect(c *cli.Context) (*zoltar.Connection, *config.Config, error) {
	cfg, err := config.Load(c.Context)
	if err != nil {
		return nil, nil, err
	}
	if host := c.String("host"); host != "" {
		cfg.Host = strings.TrimSuffix(host, "/")
	}
	if user := c.String("username"); user != "" {
		cfg.Username = user
	}
	if pass := c.String("password"); pass != "" {
		cfg.Password = pass
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(c.Context, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, nil, errors.New("username and password are required; set --username/--password or ZOLTAR_USERNAME/ZOLTAR_PASSWORD")
	}

	conn := zoltar.New(cfg.Host,
		zoltar.WithTokenTTL(time.Duration(cfg.TokenTTLSeconds)*time.Second))
	if err := conn.Authenticate(c.Context, cfg.Username, cfg.Password); err != nil {
		return nil, nil, err
	}
	return conn, cfg, nil
}

func projectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: "list the projects on the server",
		Action: func(c *cli.Context) error {
			conn, _, err := connect(c)
			if err != nil {
				return err
			}
			projects, err := conn.Projects(c.Context)
			if err != nil {
				return err
			}
			for _, project := range projects {
				name, err := project.Name(c.Context)
				if err != nil {
					return err
				}
				public, err := project.IsPublic(c.Context)
				if err != nil {
					return err
				}
				visibility := "private"
				if public {
					visibility = "public"
				}
				fmt.Printf("%s\t%s\t%s\n", name, visibility, project.URI())
			}
			return nil
		},
	}
}

func modelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "list the models of a project",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "project name", Required: true},
		},
		Action: func(c *cli.Context) error {
			conn, _, err := connect(c)
			if err != nil {
				return err
			}
			project, err := zoltar.ProjectByName(c.Context, conn, c.String("project"))
			if err != nil {
				return err
			}
			models, err := project.Models(c.Context)
			if err != nil {
				return err
			}
			for _, model := range models {
				name, err := model.Name(c.Context)
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%s\n", name, model.URI())
			}
			return nil
		},
	}
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "download a forecast's prediction data",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "project name", Required: true},
			&cli.StringFlag{Name: "model", Usage: "model name", Required: true},
			&cli.StringFlag{Name: "timezero", Usage: "timezero date (YYYY-MM-DD)", Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"},
				Usage: "output file; .csv writes the tabular form, anything else JSON (default stdout JSON)"},
		},
		Action: func(c *cli.Context) error {
			conn, _, err := connect(c)
			if err != nil {
				return err
			}
			set, err := zoltar.DownloadForecast(c.Context, conn,
				c.String("project"), c.String("model"), c.String("timezero"))
			if err != nil {
				return err
			}
			return writeSet(set, c.String("out"))
		},
	}
}

func writeSet(set *predictions.Set, out string) error {
	if out == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(set)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // error captured on the write path
	if strings.EqualFold(filepath.Ext(out), ".csv") {
		return predictions.WriteCSV(f, set)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(set); err != nil {
		return err
	}
	return f.Close()
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "upload a forecast file and wait for the job to settle",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "project name", Required: true},
			&cli.StringFlag{Name: "model", Usage: "model name", Required: true},
			&cli.StringFlag{Name: "timezero", Usage: "timezero date (YYYY-MM-DD)", Required: true},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"},
				Usage: "forecast file (.json interchange document, or .csv in tabular or quantile form)", Required: true},
			&cli.StringFlag{Name: "data-version-date", Usage: "data version date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "source", Usage: "source name recorded on the server (default: file basename)"},
		},
		Action: func(c *cli.Context) error {
			conn, cfg, err := connect(c)
			if err != nil {
				return err
			}
			set, err := readSet(c.String("file"))
			if err != nil {
				return err
			}
			source := c.String("source")
			if source == "" {
				source = filepath.Base(c.String("file"))
			}
			job, err := zoltar.UploadForecast(c.Context, conn, set, source,
				c.String("project"), c.String("model"),
				c.String("timezero"), c.String("data-version-date"),
				time.Duration(cfg.PollIntervalMS)*time.Millisecond)
			if err != nil {
				return err
			}
			fmt.Printf("upload succeeded: %s\n", job.URI())
			return nil
		},
	}
}

// readSet loads a forecast file in any of the supported encodings. CSV files
// are first read as the tabular interchange form; files with the quantile
// header fall back to the quantile importer.
func readSet(path string) (*predictions.Set, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		set, err := predictions.ReadCSV(bytes.NewReader(body))
		if err == nil {
			return set, nil
		}
		if !errors.Is(err, predictions.ErrFormat) {
			return nil, err
		}
		return predictions.FromQuantileCSV(bytes.NewReader(body))
	}
	var set predictions.Set
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &set, nil
}

// modelConfig builds the model configuration map from either a JSON config
// file or the individual flags. Key-set validation happens in CreateModel.
func modelConfig(c *cli.Context) (map[string]string, error) {
	if path := c.String("config"); path != "" {
		return modelConfigFromFile(path)
	}
	return map[string]string{
		"name":         c.String("name"),
		"abbreviation": c.String("abbreviation"),
		"team_name":    c.String("team-name"),
		"description":  c.String("description"),
		"home_url":     c.String("home-url"),
		"aux_data_url": c.String("aux-data-url"),
	}, nil
}

func modelConfigFromFile(path string) (map[string]string, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config map[string]string
	if err := json.Unmarshal(body, &config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return config, nil
}

func deleteForecastCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete-forecast",
		Usage: "delete the forecast for a (project, model, timezero) triple",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "project name", Required: true},
			&cli.StringFlag{Name: "model", Usage: "model name", Required: true},
			&cli.StringFlag{Name: "timezero", Usage: "timezero date (YYYY-MM-DD)", Required: true},
		},
		Action: func(c *cli.Context) error {
			conn, _, err := connect(c)
			if err != nil {
				return err
			}
			return zoltar.DeleteForecast(c.Context, conn,
				c.String("project"), c.String("model"), c.String("timezero"))
		},
	}
}

func createModelCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-model",
		Usage: "create a forecast model in a project",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "project name", Required: true},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"},
				Usage: "JSON file with the model configuration (name, abbreviation, team_name, description, home_url, aux_data_url)"},
			&cli.StringFlag{Name: "name", Usage: "model name"},
			&cli.StringFlag{Name: "abbreviation", Usage: "model abbreviation"},
			&cli.StringFlag{Name: "team-name", Usage: "owning team"},
			&cli.StringFlag{Name: "description", Usage: "model description"},
			&cli.StringFlag{Name: "home-url", Usage: "model home page"},
			&cli.StringFlag{Name: "aux-data-url", Usage: "auxiliary data location"},
		},
		Action: func(c *cli.Context) error {
			config, err := modelConfig(c)
			if err != nil {
				return err
			}
			conn, _, err := connect(c)
			if err != nil {
				return err
			}
			project, err := zoltar.ProjectByName(c.Context, conn, c.String("project"))
			if err != nil {
				return err
			}
			model, err := project.CreateModel(c.Context, config)
			if err != nil {
				return err
			}
			fmt.Printf("created model: %s\n", model.URI())
			return nil
		},
	}
}
