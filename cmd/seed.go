package cmd

import (
	"fmt"
	"os"

	"course_progress_backend/internal/repository"
	"course_progress_backend/internal/seed"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Import courses and enrollments from a yaml file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fh, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer fh.Close()
		file, err := seed.Load(fh)
		if err != nil {
			return err
		}

		application, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		defer application.Close()

		res, err := seed.Apply(cmd.Context(), application.Catalog, repository.NewEnrollmentRepository(application.DB), file)
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d courses %v, %d enrollments\n", len(res.CourseIDs), res.CourseIDs, res.Enrolled)
		return nil
	},
}
