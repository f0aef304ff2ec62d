package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arjunms/seatprep/internal/handler"
	"github.com/arjunms/seatprep/internal/model"
	"github.com/arjunms/seatprep/internal/store"
	"github.com/arjunms/seatprep/internal/tabular"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "seatprep",
		Short: "Exam seating data preparation server",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), statusCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `seatprep --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP data preparation server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "seatprep.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import student and timetable CSV files into an exam",
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "seatprep.db", "SQLite database path")
	f.String("exam-id", "", "Exam identifier (required)")
	f.String("students", "", "Path to student list CSV")
	f.String("timetable", "", "Path to timetable CSV")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("exam-id")

	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the readiness checklist for an exam",
		RunE:  runStatus,
	}
	f := cmd.Flags()
	f.String("db", "seatprep.db", "SQLite database path")
	f.String("exam-id", "", "Exam identifier (required)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("exam-id")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the normalized exam dataset as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "seatprep.db", "SQLite database path")
	f.String("exam-id", "", "Exam identifier (required)")
	f.Bool("full", false, "Include raw state alongside the normalized dataset")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("exam-id")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SEATPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("seatprep")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/seatprep")
	v.AddConfigPath("/etc/seatprep")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	h := handler.New(db)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server", "addr", addr, "db", v.GetString("db"))
	return http.ListenAndServe(addr, r)
}

func runImport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	studentsPath := v.GetString("students")
	timetablePath := v.GetString("timetable")
	if studentsPath == "" && timetablePath == "" {
		return fmt.Errorf("nothing to import: pass --students and/or --timetable")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	examID := v.GetString("exam-id")

	if studentsPath != "" {
		if err := importStudents(db, examID, studentsPath); err != nil {
			return err
		}
	}
	if timetablePath != "" {
		if err := importTimetable(db, examID, timetablePath); err != nil {
			return err
		}
	}
	return nil
}

func importStudents(db *store.Store, examID, path string) error {
	table, err := tabular.ReadCSV(path)
	if err != nil {
		return fmt.Errorf("read students: %w", err)
	}

	headers, err := tabular.GuessStudentHeaders(table)
	if err != nil {
		return fmt.Errorf("map student columns in %s: %w", path, err)
	}
	slog.Debug("student column mapping",
		"reg_no", headers.RegNo, "name", headers.Name,
		"department", headers.Department, "semester", headers.Semester,
		"subjects", headers.Subjects)

	rows := tabular.StudentRows(table, *headers)
	issues, err := db.SetRawStudentData(examID, rows, headers)
	if err != nil {
		return fmt.Errorf("store students: %w", err)
	}

	slog.Info("imported students", "path", path, "rows", len(rows), "issues", len(issues))
	printIssues(issues)
	return nil
}

func importTimetable(db *store.Store, examID, path string) error {
	table, err := tabular.ReadCSV(path)
	if err != nil {
		return fmt.Errorf("read timetable: %w", err)
	}

	headers, err := tabular.GuessTimetableHeaders(table)
	if err != nil {
		return fmt.Errorf("map timetable columns in %s: %w", path, err)
	}

	rows := tabular.TimetableRows(table)
	issues, err := db.SetRawTimetableData(examID, rows, headers)
	if err != nil {
		return fmt.Errorf("store timetable: %w", err)
	}

	slog.Info("imported timetable", "path", path, "rows", len(rows), "issues", len(issues))
	printIssues(issues)
	return nil
}

func printIssues(issues []model.ValidationIssue) {
	for _, issue := range issues {
		fmt.Printf("  [%s] row %d: %s\n", issue.Severity, issue.Row, issue.Message)
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	examID := v.GetString("exam-id")
	status, err := db.ValidationStatus(examID)
	if err != nil {
		return fmt.Errorf("validation status: %w", err)
	}

	fmt.Printf("exam %s (%s)\n", examID, status.Phase)
	printCheck("student data", status.StudentDataReady)
	printCheck("timetable data", status.TimetableDataReady)
	printCheck("no duplicate registrations", status.NoDuplicateReg)
	printCheck("subjects reconciled", status.SubjectMatch)
	printCheck("timetable consistency", status.TimetableConsistency)
	printCheck("student day slicing", status.StudentDaySlicing)
	printCheck("seat requirement count", status.SeatRequirementCount)
	printCheck("conflict-free subject map", status.ConflictFreeSubjectMap)
	if status.Ready() {
		fmt.Println("ready for seat allocation")
	} else {
		fmt.Printf("not ready: %d open issues\n", len(status.Issues))
	}
	printIssues(status.Issues)
	return nil
}

func printCheck(label string, ok bool) {
	mark := " "
	if ok {
		mark = "x"
	}
	fmt.Printf("  [%s] %s\n", mark, label)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.Export(v.GetString("exam-id"), v.GetBool("full"))
	if err != nil {
		return fmt.Errorf("export exam: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
