package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sibeo/internal/api/client"
	"sibeo/internal/common"
	"sibeo/internal/models"
	"sibeo/internal/services/dashboard"
	"sibeo/internal/services/manage"
)

var (
	titleFlag       string
	descriptionFlag string
	contentFlag     string
	courseCatFlag   string
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage your courses (instructors)",
}

var courseCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a course",
	RunE: func(cmd *cobra.Command, args []string) error {
		user := sibeo.session.User()
		if user == nil {
			return common.ErrUnauthorizedError("Silakan login terlebih dahulu")
		}
		input := client.CourseInput{Title: titleFlag, Description: descriptionFlag, Category: courseCatFlag}
		course, err := sibeo.dashboard.CreateCourse(cmd.Context(), &dashboard.View{User: *user}, input)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Kursus berhasil dibuat (id=%d)\n", course.ID)
		return nil
	},
}

var courseUpdateCmd = &cobra.Command{
	Use:   "update COURSE_ID",
	Short: "Edit a course; omitted fields keep their current value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd, args[0])
		if err != nil {
			return err
		}
		input := client.CourseInput{
			Title:       flagOr(cmd, "title", titleFlag, ws.Course.Title),
			Description: flagOr(cmd, "description", descriptionFlag, ws.Course.Description),
			Category:    flagOr(cmd, "category", courseCatFlag, ws.Course.Category),
		}
		if err := sibeo.manage.SaveCourse(cmd.Context(), sibeo.session.User(), ws, input); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Perubahan berhasil disimpan.")
		return nil
	},
}

var courseDeleteCmd = &cobra.Command{
	Use:   "delete COURSE_ID",
	Short: "Delete a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := common.ParseID(args[0])
		if err != nil {
			return err
		}
		user := sibeo.session.User()
		if user == nil {
			return common.ErrUnauthorizedError("Silakan login terlebih dahulu")
		}
		if err := sibeo.dashboard.DeleteCourse(cmd.Context(), &dashboard.View{User: *user}, id); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Kursus dihapus.")
		return nil
	},
}

var studentsCmd = &cobra.Command{
	Use:   "students COURSE_ID",
	Short: "List students enrolled in one of your courses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ws.Students) == 0 {
			fmt.Fprintln(out, "Belum ada siswa terdaftar.")
			return nil
		}
		w := newTable(out)
		fmt.Fprintln(w, "ID\tNAME\tEMAIL")
		for _, s := range ws.Students {
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.Name, s.Email)
		}
		return w.Flush()
	},
}

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Manage course modules (instructors)",
}

var moduleListCmd = &cobra.Command{
	Use:   "list COURSE_ID",
	Short: "List a course's modules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd, args[0])
		if err != nil {
			return err
		}
		w := newTable(cmd.OutOrStdout())
		fmt.Fprintln(w, "ID\tORDER\tTITLE")
		for _, m := range ws.Modules {
			fmt.Fprintf(w, "%d\t%d\t%s\n", m.ID, m.Order, m.Title)
		}
		return w.Flush()
	},
}

var moduleCreateCmd = &cobra.Command{
	Use:   "create COURSE_ID",
	Short: "Add a module to a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd, args[0])
		if err != nil {
			return err
		}
		input := client.ModuleInput{Title: titleFlag, Content: contentFlag}
		module, err := sibeo.manage.CreateModule(cmd.Context(), sibeo.session.User(), ws, input)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Modul berhasil ditambahkan (id=%d)\n", module.ID)
		return nil
	},
}

var moduleUpdateCmd = &cobra.Command{
	Use:   "update COURSE_ID MODULE_ID",
	Short: "Edit a module; omitted fields keep their current value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd, args[0])
		if err != nil {
			return err
		}
		moduleID, err := common.ParseID(args[1])
		if err != nil {
			return err
		}

		var current models.Module
		for _, m := range ws.Modules {
			if m.ID == moduleID {
				current = m
			}
		}
		input := client.ModuleInput{
			Title:   flagOr(cmd, "title", titleFlag, current.Title),
			Content: flagOr(cmd, "content", contentFlag, current.Content),
		}
		if err := sibeo.manage.UpdateModule(cmd.Context(), sibeo.session.User(), ws, moduleID, input); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Modul berhasil diperbarui.")
		return nil
	},
}

var moduleDeleteCmd = &cobra.Command{
	Use:   "delete COURSE_ID MODULE_ID",
	Short: "Delete a module",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd, args[0])
		if err != nil {
			return err
		}
		moduleID, err := common.ParseID(args[1])
		if err != nil {
			return err
		}
		if err := sibeo.manage.DeleteModule(cmd.Context(), sibeo.session.User(), ws, moduleID); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Modul berhasil dihapus.")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{courseCreateCmd, courseUpdateCmd} {
		c.Flags().StringVar(&titleFlag, "title", "", "course title")
		c.Flags().StringVar(&descriptionFlag, "description", "", "course description")
		c.Flags().StringVar(&courseCatFlag, "category", "", "course category")
	}
	for _, c := range []*cobra.Command{moduleCreateCmd, moduleUpdateCmd} {
		c.Flags().StringVar(&titleFlag, "title", "", "module title")
		c.Flags().StringVar(&contentFlag, "content", "", "module content")
	}

	courseCmd.AddCommand(courseCreateCmd, courseUpdateCmd, courseDeleteCmd)
	moduleCmd.AddCommand(moduleListCmd, moduleCreateCmd, moduleUpdateCmd, moduleDeleteCmd)
	rootCmd.AddCommand(courseCmd, moduleCmd, studentsCmd)
}

func openWorkspace(cmd *cobra.Command, rawID string) (*manage.Workspace, error) {
	id, err := common.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return sibeo.manage.Open(cmd.Context(), sibeo.session.User(), id)
}

// flagOr returns value when the named flag was given, otherwise current
func flagOr(cmd *cobra.Command, name, value, current string) string {
	if cmd.Flags().Changed(name) {
		return value
	}
	return current
}
