package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/muhammadolammi/jobmatch/internal/apiclient"
	"github.com/muhammadolammi/jobmatch/internal/inputguard"
	"github.com/muhammadolammi/jobmatch/internal/resumetext"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var resumePath, jobPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score a resume against a job description",
		Long: `Score a resume against a job description.

The resume may be plain text, PDF or DOCX. The job description is read as
plain text. The normalized analysis is printed as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resume, err := readInput(resumePath)
			if err != nil {
				return fmt.Errorf("read resume: %w", err)
			}
			job, err := readInput(jobPath)
			if err != nil {
				return fmt.Errorf("read job description: %w", err)
			}

			errOut := cmd.ErrOrStderr()
			if err := reportLength(errOut, "resume", resume, inputguard.ResumeLimits); err != nil {
				return err
			}
			if err := reportLength(errOut, "job description", job, inputguard.JobDescriptionLimits); err != nil {
				return err
			}

			defer a.close()
			if err := a.open(cmd.Context()); err != nil {
				return err
			}

			result, err := a.client.Analyze(cmd.Context(), resume, job)
			if apiclient.IsUnauthorized(err) {
				return errors.New("backend rejected the request as unauthorized; sign in with `jobmatch session login`")
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&resumePath, "resume", "", "resume file (.txt, .pdf or .docx)")
	cmd.Flags().StringVar(&jobPath, "job", "", "job description text file")
	_ = cmd.MarkFlagRequired("resume")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func readInput(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return resumetext.Extract(resumetext.MimeFromFilename(path), data)
}

// reportLength warns on w once text is near or at its limit.
func reportLength(w io.Writer, field, text string, limits inputguard.Limits) error {
	g, err := limits.NewGuard()
	if err != nil {
		return err
	}
	g.SetText(text)

	if lvl := g.Level(); lvl != inputguard.LevelNormal {
		fmt.Fprintf(w, "warning: %s is %d/%d characters (%s)\n", field, g.Length(), g.MaxLength(), lvl)
	}
	return nil
}
