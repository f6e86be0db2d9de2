package cli

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewJobsCommand creates the jobs command group.
func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect recorded generation jobs",
	}
	cmd.AddCommand(newJobsListCommand(rootOpts))
	cmd.AddCommand(newJobsShowCommand(rootOpts))
	return cmd
}

func newJobsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <project-id>",
		Short:         "List a project's jobs",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			jobs, err := a.st.ListJobs(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(jobs)
			}
			w := table.NewWriter()
			w.AppendHeader(table.Row{"job_id", "type", "status", "created_at", "error"})
			for _, job := range jobs {
				w.AppendRow(table.Row{job.JobID, job.Type, job.Status, job.CreatedAt.Format(time.RFC3339), job.Error})
			}
			return f.Success(w.Render())
		},
	}
}

func newJobsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <job-id>",
		Short:         "Show one job record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := a.st.GetJob(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(job)
			}
			w := table.NewWriter()
			w.AppendHeader(table.Row{"field", "value"})
			w.AppendRow(table.Row{"job_id", job.JobID})
			w.AppendRow(table.Row{"project_id", job.ProjectID})
			w.AppendRow(table.Row{"type", job.Type})
			w.AppendRow(table.Row{"status", job.Status})
			w.AppendRow(table.Row{"created_at", job.CreatedAt.Format(time.RFC3339)})
			if job.CompletedAt != nil {
				w.AppendRow(table.Row{"completed_at", job.CompletedAt.Format(time.RFC3339)})
			}
			for _, k := range sortedMapKeys(job.OutputRefs) {
				w.AppendRow(table.Row{"output." + k, job.OutputRefs[k]})
			}
			if job.Error != "" {
				w.AppendRow(table.Row{"error", job.Error})
			}
			return f.Success(w.Render())
		},
	}
}
