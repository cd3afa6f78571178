package cmd

import (
	"encoding/json"
	"errors"
	"os"

	"course_progress_backend/internal/util"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile progress for one student, a whole course, or all stale rows",
	Long: `reconcile --student 7 --course 1   重算单个学生
reconcile --course 1               刷新课程所有选课学生
reconcile --stale                  刷新一批过期记录`,
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID, _ := cmd.Flags().GetUint("student")
		courseID, _ := cmd.Flags().GetUint("course")
		stale, _ := cmd.Flags().GetBool("stale")
		if !stale && courseID == 0 {
			return errors.New("--course or --stale is required")
		}

		application, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer application.Close()

		ctx := cmd.Context()
		var out interface{}
		switch {
		case stale:
			out, err = application.Progress.RefreshStale(ctx)
		case studentID != 0:
			out, err = application.Progress.Refresh(ctx, studentID, courseID, util.TriggerCLI)
		default:
			out, err = application.Progress.SyncCourse(ctx, courseID)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	reconcileCmd.Flags().Uint("student", 0, "学生ID")
	reconcileCmd.Flags().Uint("course", 0, "课程ID")
	reconcileCmd.Flags().Bool("stale", false, "刷新过期记录")
}
