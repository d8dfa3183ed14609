package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sibeo/internal/common"
	"sibeo/internal/models"
	"sibeo/internal/services/courses"
)

var (
	searchFlag   string
	categoryFlag string
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Browse the course catalogue",
}

var coursesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses, optionally filtered",
	Run: func(cmd *cobra.Command, args []string) {
		listing := sibeo.courses.List(cmd.Context(), courses.Filter{Query: searchFlag, Category: categoryFlag})
		out := cmd.OutOrStdout()
		if listing.Demo {
			fmt.Fprintln(cmd.ErrOrStderr(), "Server tidak mengembalikan kursus, menampilkan contoh.")
		}
		if len(listing.Courses) == 0 {
			fmt.Fprintln(out, "Tidak ada kursus yang cocok.")
			return
		}

		w := newTable(out)
		fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tINSTRUCTOR\tMODULES")
		for _, c := range listing.Courses {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", c.ID, c.Title, c.Category, c.InstructorName, c.ModulesCount)
		}
		_ = w.Flush()
		fmt.Fprintf(out, "%d dari %d kursus\n", len(listing.Courses), listing.Total)
	},
}

var coursesShowCmd = &cobra.Command{
	Use:   "show COURSE_ID",
	Short: "Show a course and, when allowed, its modules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := common.ParseID(args[0])
		if err != nil {
			return err
		}
		detail, err := sibeo.courses.Detail(cmd.Context(), id, sibeo.session.User())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		c := detail.Course
		fmt.Fprintf(out, "%s\n", c.Title)
		fmt.Fprintf(out, "Kategori: %s\n", c.Category)
		if c.InstructorName != "" {
			fmt.Fprintf(out, "Instruktur: %s\n", c.InstructorName)
		}
		fmt.Fprintf(out, "Modul: %d\n\n%s\n", detail.ModuleCount, c.Description)
		if detail.Demo {
			fmt.Fprintln(out, "\n(contoh kursus)")
		}

		switch {
		case detail.CanViewModules:
			fmt.Fprintln(out)
			printModules(out, detail.Modules)
		case sibeo.session.User() == nil:
			fmt.Fprintln(out, "\nLogin untuk mendaftar kursus ini.")
		default:
			fmt.Fprintf(out, "\nDaftar dengan: sibeo enroll %d\n", c.ID)
		}
		return nil
	},
}

var enrollCmd = &cobra.Command{
	Use:   "enroll COURSE_ID",
	Short: "Enroll in a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := common.ParseID(args[0])
		if err != nil {
			return err
		}
		modules, err := sibeo.courses.Enroll(cmd.Context(), id, sibeo.session.User())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Anda berhasil mendaftar kursus ini.")
		printModules(out, modules)
		return nil
	},
}

var unenrollCmd = &cobra.Command{
	Use:   "unenroll ENROLLMENT_ID",
	Short: "Leave a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := common.ParseID(args[0])
		if err != nil {
			return err
		}
		if sibeo.session.User() == nil {
			return common.ErrUnauthorizedError("Silakan login terlebih dahulu")
		}
		if _, err := sibeo.dashboard.Unenroll(cmd.Context(), nil, key); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Anda telah berhenti dari kursus.")
		return nil
	},
}

var myCoursesCmd = &cobra.Command{
	Use:   "my-courses",
	Short: "List the courses you are enrolled in",
	RunE: func(cmd *cobra.Command, args []string) error {
		enrollments, err := sibeo.dashboard.MyCourses(cmd.Context(), sibeo.session.User())
		if err != nil {
			return err
		}
		printEnrollments(cmd.OutOrStdout(), enrollments)
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show your dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := sibeo.dashboard.Load(cmd.Context(), sibeo.session.User())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Halo, %s (%s)\n\n", view.User.Name, roleLabel(view.User.Role))
		if view.User.IsInstructor() {
			fmt.Fprintf(out, "Kursus: %d  Siswa: %d  Modul: %d\n\n",
				view.Stats.TotalCourses, view.Stats.TotalEnrollments, view.Stats.TotalModules)
			if len(view.Courses) == 0 {
				fmt.Fprintln(out, "Belum ada kursus.")
				return nil
			}
			w := newTable(out)
			fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tSTUDENTS")
			for _, c := range view.Courses {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", c.ID, c.Title, c.Category, c.EnrollmentsCount)
			}
			return w.Flush()
		}

		fmt.Fprintf(out, "Kursus diikuti: %d  Modul selesai: %d\n\n", view.Progress.TotalCourses, view.Progress.CompletedModules)
		printEnrollments(out, view.Enrollments)
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show your learning progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		user := sibeo.session.User()
		if user != nil && user.IsInstructor() {
			return common.ErrForbiddenError("Halaman ini hanya untuk siswa")
		}
		view, err := sibeo.dashboard.Load(cmd.Context(), user)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Kursus diikuti: %d\nModul selesai: %d\n",
			view.Progress.TotalCourses, view.Progress.CompletedModules)
		return nil
	},
}

func init() {
	coursesListCmd.Flags().StringVarP(&searchFlag, "search", "s", "", "match title or description")
	coursesListCmd.Flags().StringVarP(&categoryFlag, "category", "c", courses.CategoryAll, "category name or \"all\"")

	coursesCmd.AddCommand(coursesListCmd, coursesShowCmd)
	rootCmd.AddCommand(coursesCmd, enrollCmd, unenrollCmd, myCoursesCmd, dashboardCmd, progressCmd)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printModules(out io.Writer, modules []models.Module) {
	if len(modules) == 0 {
		fmt.Fprintln(out, "Belum ada modul.")
		return
	}
	for i, m := range modules {
		fmt.Fprintf(out, "%d. %s\n", i+1, m.Title)
		if m.Content != "" {
			fmt.Fprintf(out, "   %s\n", m.Content)
		}
	}
}

func printEnrollments(out io.Writer, enrollments []models.Enrollment) {
	if len(enrollments) == 0 {
		fmt.Fprintln(out, "Anda belum mendaftar kursus apa pun.")
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "ENROLLMENT\tCOURSE\tTITLE\tENROLLED")
	for _, e := range enrollments {
		title := "-"
		if e.Course != nil {
			title = e.Course.Title
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", e.Key(), e.CourseRef(), title, e.EnrolledDate)
	}
	_ = w.Flush()
}
