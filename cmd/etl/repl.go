package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

// keywords offered by tab completion.
var replKeywords = []string{
	"SELECT", "DISTINCT", "INTO", "FROM", "JOIN", "INNER", "LEFT", "RIGHT",
	"FULL", "OUTER", "ON", "WHERE", "AND", "OR", "NOT", "LIKE", "GROUP",
	"BY", "ORDER", "ASC", "DESC", "LIMIT", "TAIL", "INSERT", "VALUES",
	"size", "sum", "avg", "min", "max",
}

func runRepl(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	runner := newRunner(cfg)

	line := liner.NewLiner()
	defer func() { _ = line.Close() }()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		var out []string
		fields := strings.Fields(input)
		if len(fields) == 0 {
			return replKeywords
		}
		last := fields[len(fields)-1]
		prefix := input[:len(input)-len(last)]
		for _, kw := range replKeywords {
			if strings.HasPrefix(strings.ToLower(kw), strings.ToLower(last)) {
				out = append(out, prefix+kw)
			}
		}
		return out
	})

	if f, err := os.Open(cfg.History); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(cfg.History); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Println("etl " + version + " interactive session, statements end with ';'")

	var pending strings.Builder
	for {
		prompt := "etl> "
		if pending.Len() > 0 {
			prompt = "...> "
		}

		input, err := line.Prompt(prompt)
		if err != nil {
			// Ctrl-C clears the pending statement, Ctrl-D leaves.
			if err == liner.ErrPromptAborted {
				pending.Reset()
				continue
			}
			fmt.Println()
			return
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		if pending.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			return
		}

		pending.WriteString(input)
		pending.WriteString(" ")
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}

		statement := pending.String()
		pending.Reset()
		line.AppendHistory(strings.TrimSpace(statement))

		if err := execute(runner, statement, cfg.Format, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}
