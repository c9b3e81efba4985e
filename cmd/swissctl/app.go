package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Dosada05/swiss-system/brackets"
	"github.com/Dosada05/swiss-system/config"
	"github.com/Dosada05/swiss-system/middleware"
	"github.com/Dosada05/swiss-system/models"
	"github.com/Dosada05/swiss-system/repositories"
	"github.com/Dosada05/swiss-system/services"
	"github.com/Dosada05/swiss-system/utils"
)

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "swissctl",
		Usage:     "run a Swiss-system tournament from the terminal",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config file", EnvVars: []string{"CONFIG_FILE"}},
			&cli.StringFlag{Name: "tournament", Aliases: []string{"t"}, Value: "default", Usage: "tournament id"},
			&cli.StringFlag{Name: "backend", Usage: "storage backend (memory, file, s3, sqlite, postgres)"},
			&cli.StringFlag{Name: "data-dir", Usage: "snapshot directory for the file backend"},
			&cli.StringFlag{Name: "sqlite-path", Usage: "database file for the sqlite backend"},
			&cli.Int64Flag{Name: "seed", Usage: "fixed seed for the round 1 shuffle"},
			&cli.BoolFlag{Name: "verbose", Usage: "debug logging"},
		},
		Commands: []*cli.Command{
			{
				Name:      "setup",
				Usage:     "register players and reset the tournament",
				ArgsUsage: "NAME...",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "min", Usage: "minimum number of rounds"},
					&cli.IntFlag{Name: "max", Usage: "maximum number of rounds"},
				},
				Action: setupAction,
			},
			{
				Name:   "pairings",
				Usage:  "print the pairings of the current round, generating them if needed",
				Action: pairingsAction,
			},
			{
				Name:  "pair",
				Usage: "replace the current round's pairings by hand",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "pair", Aliases: []string{"p"}, Usage: "FIRST:SECOND, once per board", Required: true},
				},
				Action: pairAction,
			},
			{
				Name:      "commit",
				Usage:     "record the results of the current round",
				ArgsUsage: "BOARD=RESULT...",
				Action:    commitAction,
			},
			{
				Name:   "standings",
				Usage:  "print the ranked standings",
				Action: standingsAction,
			},
			{
				Name:   "show",
				Usage:  "print the tournament state",
				Action: showAction,
			},
			{
				Name:   "list",
				Usage:  "list stored tournaments",
				Action: listAction,
			},
			{
				Name:  "token",
				Usage: "issue an organizer token for the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Value: "organizer"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: tokenAction,
			},
		},
	}
}

// env is what one command invocation needs. close must run before the
// command returns so queued snapshots reach storage.
type env struct {
	cfg     *config.Config
	service services.TournamentService
	id      string
	close   func()
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadFile(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("backend") {
		cfg.Storage.Backend = c.String("backend")
		cfg.Storage.MirrorBackend = ""
	}
	if c.IsSet("data-dir") {
		cfg.Storage.DataDir = c.String("data-dir")
	}
	if c.IsSet("sqlite-path") {
		cfg.Storage.SQLitePath = c.String("sqlite-path")
	}
	if c.IsSet("seed") {
		cfg.Tournament.PairingSeed = c.Int64("seed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEnv(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))

	repo, closeRepo, err := repositories.OpenBackend(c.Context, cfg.Storage.Backend, cfg.Storage, cfg.Tournament.BuchholzScale)
	if err != nil {
		return nil, err
	}
	closers := []func() error{closeRepo}
	targets := []services.PersistTarget{{Name: cfg.Storage.Backend, Repo: repo}}

	if cfg.Storage.MirrorBackend != "" {
		mirror, closeMirror, err := repositories.OpenBackend(c.Context, cfg.Storage.MirrorBackend, cfg.Storage, cfg.Tournament.BuchholzScale)
		if err != nil {
			_ = closeRepo()
			return nil, err
		}
		closers = append(closers, closeMirror)
		targets = append(targets, services.PersistTarget{Name: cfg.Storage.MirrorBackend, Repo: mirror})
	}

	var src rand.Source
	if cfg.Tournament.PairingSeed != 0 {
		src = rand.NewSource(cfg.Tournament.PairingSeed)
	}

	svc := services.NewTournamentService(
		services.TournamentServiceConfig{
			DefaultRoundMin: cfg.Tournament.DefaultRoundMin,
			DefaultRoundMax: cfg.Tournament.DefaultRoundMax,
			BuchholzScale:   cfg.Tournament.BuchholzScale,
		},
		repo,
		services.NewPersister(logger, nil, targets...),
		brackets.NewGenerators(brackets.NewRandomGenerator(src)),
		nil,
		nil,
		logger,
	)

	return &env{
		cfg:     cfg,
		service: svc,
		id:      c.String("tournament"),
		close: func() {
			svc.Close()
			for _, closeFn := range closers {
				if err := closeFn(); err != nil {
					logger.Error("failed to close storage backend", slog.Any("error", err))
				}
			}
		},
	}, nil
}

func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := openEnv(c)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(c, e)
	}
}

var (
	setupAction = withEnv(func(c *cli.Context, e *env) error {
		input := services.SetupInput{Names: c.Args().Slice()}
		if c.IsSet("min") {
			v := c.Int("min")
			input.RoundMin = &v
		}
		if c.IsSet("max") {
			v := c.Int("max")
			input.RoundMax = &v
		}

		view, err := e.service.SetupTournament(c.Context, e.id, input)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Tournament %s: %d players, %d rounds\n", view.ID, len(view.Players), view.TotalRounds)
		return nil
	})

	pairingsAction = withEnv(func(c *cli.Context, e *env) error {
		pairs, err := e.service.GetCurrentPairings(c.Context, e.id)
		var exhausted *brackets.PairingExhaustedError
		if errors.As(err, &exhausted) {
			if perr := printPairings(c, e, pairs); perr != nil {
				return perr
			}
			return fmt.Errorf("%w; set the pairings by hand with 'swissctl pair'", err)
		}
		if err != nil {
			return err
		}
		return printPairings(c, e, pairs)
	})

	pairAction = withEnv(func(c *cli.Context, e *env) error {
		raw := c.StringSlice("pair")
		pairs := make([][2]string, 0, len(raw))
		for _, p := range raw {
			first, second, ok := strings.Cut(p, ":")
			if !ok {
				return fmt.Errorf("pair %q must look like FIRST:SECOND", p)
			}
			pairs = append(pairs, [2]string{first, second})
		}

		stored, err := e.service.SetPairings(c.Context, e.id, pairs)
		if err != nil {
			return err
		}
		return printPairings(c, e, stored)
	})

	commitAction = withEnv(func(c *cli.Context, e *env) error {
		results, err := parseResults(c.Args().Slice())
		if err != nil {
			return err
		}

		view, err := e.service.CommitRound(c.Context, e.id, results)
		if err != nil {
			return err
		}
		if view.Status == models.StatusCompleted {
			fmt.Fprintf(c.App.Writer, "Tournament %s is complete\n\n", view.ID)
			standings, err := e.service.GetStandings(c.Context, e.id)
			if err != nil {
				return err
			}
			fmt.Fprint(c.App.Writer, utils.BuildStandingsOutput(standings))
			return nil
		}
		fmt.Fprintf(c.App.Writer, "Round committed, next is round %d of %d\n", view.Round, view.TotalRounds)
		return nil
	})

	standingsAction = withEnv(func(c *cli.Context, e *env) error {
		standings, err := e.service.GetStandings(c.Context, e.id)
		if err != nil {
			return err
		}
		fmt.Fprint(c.App.Writer, utils.BuildStandingsOutput(standings))
		return nil
	})

	showAction = withEnv(func(c *cli.Context, e *env) error {
		view, err := e.service.GetTournament(c.Context, e.id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Tournament %s\nStatus: %s\nRound: %d of %d\nPlayers: %d\n",
			view.ID, view.Status, view.Round, view.TotalRounds, len(view.Players))
		if len(view.PendingPairs) > 0 {
			fmt.Fprintln(c.App.Writer)
			fmt.Fprint(c.App.Writer, utils.BuildPairingsOutput(view.Round, view.PendingPairs))
		}
		return nil
	})

	listAction = withEnv(func(c *cli.Context, e *env) error {
		ids, err := e.service.ListTournaments(c.Context)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(c.App.Writer, id)
		}
		return nil
	})
)

func tokenAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	token, err := middleware.IssueToken(cfg.JWTSecretKey, c.String("subject"), middleware.RoleOrganizer, c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}

func printPairings(c *cli.Context, e *env, pairs []models.Pairing) error {
	view, err := e.service.GetTournament(c.Context, e.id)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, utils.BuildPairingsOutput(view.Round, pairs))
	return nil
}

// parseResults turns "BOARD=RESULT" arguments into results keyed by
// pairing index. Boards are numbered from 1.
func parseResults(args []string) (map[int]models.Outcome, error) {
	if len(args) == 0 {
		return nil, errors.New("no results given, expected BOARD=RESULT arguments")
	}
	results := make(map[int]models.Outcome, len(args))
	for _, arg := range args {
		boardStr, resultStr, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("result %q must look like BOARD=RESULT", arg)
		}
		board, err := strconv.Atoi(strings.TrimSpace(boardStr))
		if err != nil || board < 1 {
			return nil, fmt.Errorf("result %q: board must be a positive number", arg)
		}
		if _, dup := results[board-1]; dup {
			return nil, fmt.Errorf("board %d given twice", board)
		}
		outcome, err := models.ParseOutcome(resultStr)
		if err != nil {
			return nil, fmt.Errorf("board %d: %w", board, err)
		}
		results[board-1] = outcome
	}
	return results, nil
}
