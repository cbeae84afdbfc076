package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/source"
)

var (
	jobWatch bool

	jobCmd = &cobra.Command{
		Use:     "job JOB",
		Short:   "Show the status of a processing job",
		Long:    paragraph(fmt.Sprintf("\n%s the status of a chapter processing job.", keyword("Show"))),
		Example: paragraph("inkami job j_81\ninkami job j_81 --watch"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadReaderConfig()
			if err != nil {
				return err
			}
			src := source.NewHTTPSource(cfg.API)

			for {
				job, err := getJob(cmd.Context(), src, args[0], cfg.API.Timeout)
				if err != nil {
					return err
				}
				fmt.Println(formatJob(job))
				if !jobWatch || job.Status != reader.ChapterProcessing {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-time.After(cfg.API.PollInterval):
				}
			}
		},
	}
)

func getJob(ctx context.Context, src *source.HTTPSource, id string, timeout time.Duration) (reader.JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	job, err := src.GetJob(ctx, id)
	if err != nil {
		return job, fmt.Errorf("unable to get job: %w", err)
	}
	return job, nil
}

func formatJob(job reader.JobStatus) string {
	s := fmt.Sprintf("%s %s %d%%", job.JobID, keyword(string(job.Status)), job.Progress)
	if job.ChapterID != "" {
		s += " chapter " + job.ChapterID
	}
	if job.Error != "" {
		s += ": " + job.Error
	}
	return s
}

func init() {
	jobCmd.Flags().BoolVarP(&jobWatch, "watch", "w", false, "poll until the job is done")
}
