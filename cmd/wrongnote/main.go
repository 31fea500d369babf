package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pavelanni/wrongnote/internal/diagnosis"
	"github.com/pavelanni/wrongnote/internal/handler"
	appI18n "github.com/pavelanni/wrongnote/internal/i18n"
	"github.com/pavelanni/wrongnote/internal/ingest"
	"github.com/pavelanni/wrongnote/internal/llm"
	"github.com/pavelanni/wrongnote/internal/model"
	"github.com/pavelanni/wrongnote/internal/store"
	"github.com/pavelanni/wrongnote/internal/summary"
)

var version = "dev"

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "wrongnote",
		Short:   "Wrong-answer analytics for reading and vocabulary tests",
		Version: version,
	}

	serve := serveCmd()
	root.AddCommand(serve, summaryCmd(), blueprintCmd(), recordCmd(), importCmd(), exportCmd(), tablesCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addCommonFlags registers the flags every subcommand understands.
func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "wrongnote.db", "SQLite database path")
	f.String("timezone", "Asia/Seoul", "Time zone used to stamp recorded answers")
	f.StringP("lang", "l", "ko", "Default language for messages and guidance (ko, en)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("log-file", "", "Write logs to this file with size-based rotation instead of stderr")
	f.Int("log-max-size-mb", 50, "Rotate the log file after this many megabytes")
	f.Int("log-max-backups", 5, "Number of rotated log files to keep")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "", "LLM model for coach notes (empty disables them)")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (default: any)")
	return cmd
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a student's wrong-answer summary as JSON",
		RunE:  runSummary,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("student", "s", "", "Student ID (required)")
	f.Int("from", 1, "First week (inclusive)")
	f.Int("to", 1, "Last week (inclusive)")
	f.StringP("book", "b", "", "Restrict to one book")
	f.Bool("diagnose", false, "Include the weakness diagnosis")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}

func blueprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blueprint",
		Short: "List the question slots of a session",
		RunE:  runBlueprint,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.IntP("week", "w", 0, "Week number (required)")
	f.String("session", "", "Session number (required)")
	f.StringP("book", "b", "", "Restrict to one book")
	_ = cmd.MarkFlagRequired("week")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record SLOT...",
		Short: "Record wrong answers for a student's session",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRecord,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("student", "s", "", "Student ID (required)")
	f.IntP("week", "w", 0, "Week number (required)")
	f.String("session", "", "Session number (required)")
	f.StringP("book", "b", "", "Book the session belongs to")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("week")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace a table with the rows of a CSV or XLSX file",
		RunE:  runImport,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("table", "t", "", "Table name, e.g. QUESTION_DB (required)")
	f.StringP("file", "f", "", "CSV or XLSX file (required)")
	f.String("sheet", "", "Worksheet of an XLSX file (default: first)")
	f.Bool("force", false, "Import even if the file is unchanged since the last import")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.RegisterFlagCompletionFunc("table", completeTables)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a table as CSV",
		RunE:  runExport,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("table", "t", "", "Table name (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.RegisterFlagCompletionFunc("table", completeTables)
	return cmd
}

func tablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List stored tables",
		RunE:  runTables,
	}
	addCommonFlags(cmd)
	return cmd
}

func completeTables(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return model.TableNames(), cobra.ShellCompDirectiveNoFileComp
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

	var out io.Writer = os.Stderr
	if path := v.GetString("log-file"); path != "" {
		out = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    v.GetInt("log-max-size-mb"),
			MaxBackups: v.GetInt("log-max-backups"),
			Compress:   true,
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(out, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("WRONGNOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("wrongnote")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/wrongnote")
	v.AddConfigPath("/etc/wrongnote")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// setup configures logging and opens the database for a subcommand.
func setup(cmd *cobra.Command) (*viper.Viper, *store.Store, error) {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return v, db, nil
}

func newService(v *viper.Viper, db *store.Store) (*summary.Service, error) {
	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	return summary.NewService(db, loc), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	var coach *llm.Client
	if modelName := v.GetString("llm-model"); modelName != "" {
		coach = llm.New(v.GetString("llm-url"), v.GetString("llm-key"), modelName)
		if err := coach.Ping(context.Background()); err != nil {
			slog.Warn("LLM health check failed, coach notes disabled", "url", v.GetString("llm-url"), "error", err)
			coach = nil
		} else {
			slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", modelName)
		}
	}

	h := handler.New(db, coach, loc, version)
	r := h.Router(lang, v.GetStringSlice("cors-origins"))

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", lang,
		"timezone", loc.String(),
		"coach", coach != nil,
		"version", version,
	)
	return http.ListenAndServe(addr, r)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := newService(v, db)
	if err != nil {
		return err
	}
	resp, err := svc.GetSummary(v.GetString("student"), v.GetInt("from"), v.GetInt("to"), v.GetString("book"))
	if err != nil {
		return err
	}
	if !v.GetBool("diagnose") {
		return printJSON(cmd.OutOrStdout(), resp)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))
	return printJSON(cmd.OutOrStdout(), model.Insight{
		Summary:   resp,
		Diagnosis: diagnosis.Diagnose(resp.ByQType, resp.ByArea, appI18n.GuideFromContext(ctx)),
	})
}

func runBlueprint(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := newService(v, db)
	if err != nil {
		return err
	}
	bp, err := svc.SessionBlueprint(v.GetInt("week"), v.GetString("session"), v.GetString("book"))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), bp)
}

func runRecord(cmd *cobra.Command, args []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := newService(v, db)
	if err != nil {
		return err
	}
	res, err := svc.RecordWrongAnswers(model.RecordRequest{
		StudentID:  v.GetString("student"),
		Week:       v.GetInt("week"),
		Session:    v.GetString("session"),
		Book:       v.GetString("book"),
		WrongSlots: args,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runImport(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	path := v.GetString("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	table := strings.ToUpper(strings.TrimSpace(v.GetString("table")))
	res, err := ingest.Import(db, table, path, data, v.GetString("sheet"), v.GetBool("force"))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	table := strings.ToUpper(strings.TrimSpace(v.GetString("table")))
	rows, err := db.GetTable(table)
	if err != nil {
		return fmt.Errorf("read table %s: %w", table, err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := ingest.WriteCSV(w, rows); err != nil {
		return err
	}
	slog.Info("exported table", "table", table, "rows", len(rows), "output", outPath)
	return nil
}

func runTables(cmd *cobra.Command, _ []string) error {
	_, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	tables, err := db.ListTables()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, t := range tables {
		fmt.Fprintf(out, "%-16s %6d  %s\n", t.Name, t.Rows, t.CreatedAt.Format(time.DateTime))
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
