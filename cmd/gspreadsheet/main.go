package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"gspreadsheet/pkg/config"
	"gspreadsheet/pkg/session"
	"gspreadsheet/pkg/worksheet"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	configFile  string
	key         string
	worksheetID string
	skip        int
	formulas    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "gspreadsheet",
		Short:         "Read and edit a single spreadsheet worksheet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			log.SetFormatter(&log.TextFormatter{
				FullTimestamp: true,
			})
			if key == "" {
				return fmt.Errorf("you must specify a spreadsheet key with --key")
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "gspreadsheet.toml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&key, "key", "k", "", "Spreadsheet key (required)")
	rootCmd.PersistentFlags().StringVarP(&worksheetID, "worksheet", "w", "od6", "Worksheet ID")

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print display values as tab separated rows",
		Args:  cobra.NoArgs,
		RunE:  withWorksheet(dump),
	}
	dumpCmd.Flags().IntVar(&skip, "skip", 0, "Number of leading rows to skip")

	exportCmd := &cobra.Command{
		Use:   "export [output.xlsx]",
		Short: "Write the worksheet to an xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE:  withWorksheet(export),
	}
	exportCmd.Flags().BoolVar(&formulas, "formulas", false, "Write formulas instead of computed values")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "get [label]...",
			Short: "Print cell values",
			Args:  cobra.MinimumNArgs(1),
			RunE:  withWorksheet(get),
		},
		&cobra.Command{
			Use:   "set [label] [value]...",
			Short: "Set cell input values and save them",
			Args: func(cmd *cobra.Command, args []string) error {
				if len(args) == 0 || len(args)%2 != 0 {
					return fmt.Errorf("expected label/value pairs, got %d args", len(args))
				}
				return nil
			},
			RunE: withWorksheet(set),
		},
		dumpCmd,
		&cobra.Command{
			Use:   "resize [rows] [cols]",
			Short: "Change the worksheet extent",
			Args:  cobra.ExactArgs(2),
			RunE:  withWorksheet(resize),
		},
		&cobra.Command{
			Use:   "rename [title]",
			Short: "Change the worksheet title",
			Args:  cobra.ExactArgs(1),
			RunE:  withWorksheet(rename),
		},
		exportCmd,
		&cobra.Command{
			Use:   "delete",
			Short: "Delete the worksheet",
			Args:  cobra.NoArgs,
			RunE:  withWorksheet(remove),
		},
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

type worksheetFunc func(ctx context.Context, ws *worksheet.Worksheet, args []string) error

func withWorksheet(fn worksheetFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Open(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", configFile, err)
		}
		sess, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		feedURL := fmt.Sprintf("%s/feeds/cells/%s/%s/private/full",
			strings.TrimRight(cfg.Store.Service.FeedBaseURL, "/"), key, worksheetID)
		log.Debugf("using cells feed %s", feedURL)
		return fn(ctx, worksheet.New(sess, feedURL), args)
	}
}

func openSession(ctx context.Context, cfg *config.Config) (*session.Session, error) {
	email, password := cfg.Email(), cfg.Password()
	opts := session.Options{
		AuthURL:           cfg.Store.Service.AuthURL,
		Source:            cfg.Store.Service.Source,
		HTTPClient:        &http.Client{Timeout: cfg.Timeout()},
		RequestsPerSecond: cfg.Store.Client.RequestsPerSecond,
	}
	if n := cfg.Store.Client.MaxAuthAttempts; n > 0 {
		opts.Retry = session.MaxAttempts(n)
	}

	token := cfg.Token()
	if token == "" {
		if email == "" || password == "" {
			return nil, fmt.Errorf("set %s, or %s and %s", config.EnvToken, config.EnvEmail, config.EnvPassword)
		}
		// No recovery callback on the initial login.
		s, err := session.Login(ctx, email, password, opts)
		if err != nil {
			return nil, err
		}
		token = s.Token()
	}

	if email != "" && password != "" {
		opts.OnAuthFail = func(ctx context.Context, s *session.Session) bool {
			log.Infof("token rejected, logging in again as %s", email)
			if err := s.Login(ctx, email, password); err != nil {
				log.Warnf("re-login failed: %v", err)
				return false
			}
			return true
		}
	}
	return session.New(token, opts), nil
}

func get(ctx context.Context, ws *worksheet.Worksheet, args []string) error {
	for _, label := range args {
		v, err := ws.ValueAt(ctx, label)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			fmt.Println(v)
		} else {
			fmt.Printf("%s\t%s\n", label, v)
		}
	}
	return nil
}

func set(ctx context.Context, ws *worksheet.Worksheet, args []string) error {
	for i := 0; i < len(args); i += 2 {
		if err := ws.SetAt(ctx, args[i], args[i+1]); err != nil {
			return err
		}
	}
	sent, err := ws.Save(ctx)
	if err != nil {
		return err
	}
	log.Infof("saved %d cells (sent=%t)", len(args)/2, sent)
	return nil
}

func dump(ctx context.Context, ws *worksheet.Worksheet, args []string) error {
	rows, err := ws.Rows(ctx, skip)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Println(strings.Join(row, "\t"))
	}
	return nil
}

func resize(ctx context.Context, ws *worksheet.Worksheet, args []string) error {
	rows, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid row count %q: %w", args[0], err)
	}
	cols, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid column count %q: %w", args[1], err)
	}
	if err := ws.SetMaxRows(ctx, rows); err != nil {
		return err
	}
	if err := ws.SetMaxCols(ctx, cols); err != nil {
		return err
	}
	_, err = ws.Save(ctx)
	return err
}

func rename(ctx context.Context, ws *worksheet.Worksheet, args []string) error {
	if err := ws.SetTitle(ctx, args[0]); err != nil {
		return err
	}
	_, err := ws.Save(ctx)
	return err
}

func export(ctx context.Context, ws *worksheet.Worksheet, args []string) error {
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := ws.WriteXLSX(ctx, f, worksheet.ExportOptions{Formulas: formulas}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func remove(ctx context.Context, ws *worksheet.Worksheet, args []string) error {
	if err := ws.Delete(ctx); err != nil {
		return err
	}
	log.Infof("deleted worksheet %s/%s", key, worksheetID)
	return nil
}
