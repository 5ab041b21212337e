// Command etl runs SQL-like queries over heterogeneous datasources:
// CSV, JSON, parquet, SQL databases and remote Earth Engine datasets.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/OmarAdellll/ETL/config"
	"github.com/OmarAdellll/ETL/data"
	"github.com/OmarAdellll/ETL/etl"
	"github.com/OmarAdellll/ETL/output"
	"github.com/OmarAdellll/ETL/plan"
	"github.com/OmarAdellll/ETL/query"
)

var version = "dev"

func addCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single query",
		Run:   runQuery}
	cmd.Flags().StringP("query", "q", "", "query text")
	cmd.Flags().StringP("format", "f", "", "output format: table, csv or json")
	cmd.Flags().StringP("output", "o", "", "write the result to a file instead of stdout")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Run:   runRepl}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		}}
	root.AddCommand(cmd)
}

// loadConfig reads the config named by the persistent flag.
func loadConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		fatal(err)
	}
	return cfg
}

// newRunner builds a runner wired to the configured adapters.
func newRunner(cfg *config.Config) *etl.Runner {
	factory := data.NewFactory(data.GEEOptions{
		BaseURL: cfg.GEE.BaseURL,
		Token:   cfg.GEE.Token,
		Timeout: cfg.GEE.Timeout(),
	})
	return etl.NewRunner(factory)
}

// execute parses a statement, runs it and renders the result to w.
// Statements with an INTO clause load their result and print nothing.
func execute(runner *etl.Runner, text, format string, w io.Writer) error {
	stmt, err := query.Parse(text)
	if err != nil {
		return err
	}

	switch s := stmt.(type) {
	case *query.Select:
		p, err := plan.Build(s)
		if err != nil {
			return err
		}
		rel, err := runner.Run(p)
		if err != nil {
			return err
		}
		if s.Into != nil {
			return nil
		}
		formatter, err := output.New(format, w)
		if err != nil {
			return err
		}
		return formatter.Format(rel)
	case *query.Insert:
		return runner.RunInsert(s)
	case *query.Update:
		return &plan.UnsupportedStatementError{Kind: "UPDATE"}
	case *query.Delete:
		return &plan.UnsupportedStatementError{Kind: "DELETE"}
	}
	return fmt.Errorf("unsupported statement %T", stmt)
}

func runQuery(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	text, _ := cmd.Flags().GetString("query")
	if text == "" {
		fatal(fmt.Errorf("a query is required, pass --query"))
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = cfg.Format
	}

	var w io.Writer = os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			fatal(err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := execute(newRunner(cfg), text, format, w); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func main() {
	root := &cobra.Command{
		Use:   "etl",
		Short: "Query and move data between CSV, JSON, parquet, SQL and remote datasources"}
	root.PersistentFlags().String("config", configPath(), "config file")
	addCommands(root)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".etl.yaml"
	}
	return home + "/.etl.yaml"
}
