// main.go
//
// Entry point for the AI number guesser.
//
// Subcommands:
//
//	serve (default)  run the HTTP API
//	train            synthesize episodes, fit the decision tree, save the model
//	play             let the engine find a target locally and print each step
//
// Configuration comes from the environment (optionally a .env file); flags
// on each subcommand override it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/assets"
	"github.com/robalobadob/numguess/internal/classifier"
	"github.com/robalobadob/numguess/internal/dataset"
	"github.com/robalobadob/numguess/internal/db"
	"github.com/robalobadob/numguess/internal/engine"
	"github.com/robalobadob/numguess/internal/httpserver"
	"github.com/robalobadob/numguess/internal/store"
)

// config is the process configuration.
type config struct {
	Port      string
	DBPath    string
	ModelPath string

	MaxNumber      int // play range
	TrainMaxNumber int // synthesis range
	NumSamples     int
	MaxDepth       int
	MinSplit       int
	Seed           uint64

	JWTSecret    string
	TokenTTL     time.Duration
	DailySalt    string
	ClientOrigin string
}

func loadConfig() config {
	return config{
		Port:           getEnv("PORT", "5175"),
		DBPath:         getEnv("DB_PATH", "./data/numguess.db"),
		ModelPath:      getEnv("MODEL_PATH", "./data/model.json"),
		MaxNumber:      getEnvInt("MAX_NUMBER", 100),
		TrainMaxNumber: getEnvInt("TRAIN_MAX_NUMBER", 100),
		NumSamples:     getEnvInt("NUM_SAMPLES", 5000),
		MaxDepth:       getEnvInt("TREE_MAX_DEPTH", classifier.DefaultMaxDepth),
		MinSplit:       getEnvInt("TREE_MIN_SPLIT", classifier.DefaultMinSamplesSplit),
		Seed:           uint64(getEnvInt("SEED", 42)),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		TokenTTL:       time.Duration(getEnvInt("GAME_TOKEN_TTL_HOURS", 24)) * time.Hour,
		DailySalt:      getEnv("DAILY_SALT", "local_dev_salt"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
	}
}

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	cfg := loadConfig()
	ctx := context.Background()

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, cfg, args)
	case "train":
		err = runTrain(ctx, cfg, args)
	case "play":
		err = runPlay(ctx, cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want serve, train or play)\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("exited")
	}
}

func runServe(ctx context.Context, cfg config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "model file")
	fs.IntVar(&cfg.MaxNumber, "max", cfg.MaxNumber, "default range for new games")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ds, closeDB, err := openDataset(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB()

	tree, err := loadModel(ctx, cfg, ds)
	if err != nil {
		return err
	}
	srv := httpserver.New(store.NewMemoryStore(), engine.New(tree), httpserver.Config{
		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     cfg.TokenTTL,
		DailySalt:    cfg.DailySalt,
		MaxNumber:    cfg.MaxNumber,
		ClientOrigin: cfg.ClientOrigin,
	})
	log.Info().Str("port", cfg.Port).Msg("starting numguess server")
	return srv.Start(":" + cfg.Port)
}

func runTrain(ctx context.Context, cfg config, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	fs.IntVar(&cfg.NumSamples, "samples", cfg.NumSamples, "episodes to simulate")
	fs.IntVar(&cfg.TrainMaxNumber, "max", cfg.TrainMaxNumber, "upper bound of simulated games")
	fs.IntVar(&cfg.MaxDepth, "depth", cfg.MaxDepth, "maximum tree depth")
	fs.IntVar(&cfg.MinSplit, "min-split", cfg.MinSplit, "minimum samples to split a node")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "output model file")
	runID := fs.String("run", "", "retrain on a stored run instead of simulating")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ds, closeDB, err := openDataset(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB()

	if *runID != "" {
		_, err = retrain(ctx, cfg, ds, *runID)
	} else {
		_, err = train(ctx, cfg, ds)
	}
	return err
}

func runPlay(ctx context.Context, cfg config, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	target := fs.Int("target", 0, "secret number (0 = random)")
	fs.IntVar(&cfg.MaxNumber, "max", cfg.MaxNumber, "upper bound of the game")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "model file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ds, closeDB, err := openDataset(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB()

	tree, err := loadModel(ctx, cfg, ds)
	if err != nil {
		return err
	}
	_, err = playGame(os.Stdout, engine.New(tree), cfg.MaxNumber, *target)
	return err
}

// openDataset opens and migrates the training database.
func openDataset(ctx context.Context, path string) (*dataset.Store, func(), error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Migrate(ctx, conn, assets.Migrations()); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return dataset.NewStore(conn), func() { _ = conn.Close() }, nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt is getEnv for integers; unparsable values fall back to def.
func getEnvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("ignoring non-integer setting")
		return def
	}
	return n
}
