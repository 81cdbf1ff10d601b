// Command soundmarkctl is a CLI standing in for an HTTP front end: it
// drives match submission, ingest submission, and status lookups
// against a Service built from the process environment.
package main

import (
	"fmt"
	"os"

	"github.com/soundmark/soundmark/internal/config"
	"github.com/soundmark/soundmark/internal/downloader"
	"github.com/soundmark/soundmark/internal/index"
	"github.com/soundmark/soundmark/internal/logging"
	"github.com/soundmark/soundmark/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "soundmarkctl",
		Short: "Acoustic fingerprinting engine control CLI",
	}
	root.AddCommand(newMatchCmd(), newIngestCmd(), newStatusCmd())
	return root
}

func buildService() (*service.Service, error) {
	logging.Init(false)
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	idx, err := index.Open(cfg.DBURL)
	if err != nil {
		return nil, err
	}

	dl := downloader.NewYTDLP(cfg.TempDir)
	svc := service.New(idx, dl,
		service.WithTempDir(cfg.TempDir),
		service.WithSampleRate(cfg.SampleRate),
		service.WithWorkers(cfg.Workers),
	)
	return svc, nil
}

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <audio-file>",
		Short: "Submit an audio excerpt for matching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			id, err := svc.SubmitMatch(data)
			if err != nil {
				return err
			}
			fmt.Printf("submitted match job %s\n", id)
			return nil
		},
	}
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <url>",
		Short: "Submit a URL for the downloader to resolve and ingest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			ids, err := svc.SubmitIngest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logging.L().Info("ingest submitted", zap.Int("job_count", len(ids)))
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Look up a job's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}

			status, err := svc.GetStatus(id)
			if err != nil {
				return err
			}
			fmt.Printf("state: %s\n", status.State)
			if status.Err != nil {
				fmt.Printf("error: %v\n", status.Err)
			}
			if status.Result != nil {
				fmt.Printf("result: %+v\n", status.Result)
			}
			return nil
		},
	}
}
