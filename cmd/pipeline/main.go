package main

import (
	"context"
	"os"

	"github.com/woozymasta/zonemap/internal/config"
	"github.com/woozymasta/zonemap/internal/logger"
	"github.com/woozymasta/zonemap/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string   `short:"c" long:"config"      env:"CONFIG_FILE"   description:"Path to configuration file" default:"config.yaml"`
	Credentials string   `short:"d" long:"credentials" env:"DB_CREDENTIALS" description:"Path to database credentials JSON file" default:"database.json"`
	Limit       []string `short:"l" long:"limit"       env:"LIMIT_NAMES"   description:"Limit processing to specific job names"`
	Force       bool     `short:"f" long:"force"       description:"Force overwrite of existing outputs"`
	FastCheck   bool     `short:"F" long:"fast-check"  description:"Skip jobs whose output directory exists"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	creds, err := config.LoadCredentials(opts.Credentials)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load database credentials")
	}

	// Filter jobs if limit is set
	jobsToProcess := cfg.Jobs
	if len(opts.Limit) > 0 {
		jobsToProcess = make([]config.Job, 0)
		availableJobs := make(map[string]config.Job)
		for _, j := range cfg.Jobs {
			availableJobs[j.Name] = j
		}

		seen := make(map[string]bool)

		for _, limitName := range opts.Limit {
			if seen[limitName] {
				continue
			}
			seen[limitName] = true

			if j, ok := availableJobs[limitName]; ok {
				jobsToProcess = append(jobsToProcess, j)
			} else {
				log.Error().
					Str("name", limitName).
					Msg("Job specified in --limit not found in configuration")
			}
		}
	}

	log.Info().
		Int("jobs_total", len(cfg.Jobs)).
		Int("jobs_queued", len(jobsToProcess)).
		Bool("fast_check", opts.FastCheck).
		Msg("Starting pipeline")

	ctx := context.Background()

	failed := 0
	for _, job := range jobsToProcess {
		if err := processor.Run(ctx, cfg, job, creds, opts.Force, opts.FastCheck); err != nil {
			failed++
			log.Error().Err(err).Str("job", job.Name).Msg("Failed to process job")
		}
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Pipeline finished with errors")
		os.Exit(1)
	}

	log.Info().Msg("Pipeline finished successfully")
}
