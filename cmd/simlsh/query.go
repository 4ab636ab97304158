package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/simlsh/internal/indexsvc"
)

// errServerRequired is returned when query is invoked without --server: a
// column ID only has meaning against the resident index that minted it,
// and the CLI keeps no state across invocations (simlsh carries no
// persistence, per its core's non-goals).
var errServerRequired = errors.New("query requires --server pointing at a running simlsh serve instance")

func queryCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "query <column-id>",
		Short: "Look up a previously-indexed column and print its candidate matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runQuery(server, args[0])
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "address of a running simlsh serve instance (e.g. http://localhost:8080)")

	return cmd
}

func runQuery(server, id string) error {
	if server == "" {
		return errServerRequired
	}

	query := url.Values{"id": []string{id}}

	resp, err := http.Get(server + "/query?" + query.Encode()) //nolint:noctx // CLI one-shot request
	if err != nil {
		return fmt.Errorf("get /query from %s: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s for /query", resp.Status)
	}

	var matches []indexsvc.ColumnInfo

	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return fmt.Errorf("decode /query response: %w", err)
	}

	renderMatchTable(id, matches)

	return nil
}

func renderMatchTable(id string, matches []indexsvc.ColumnInfo) {
	if len(matches) == 0 {
		fmt.Fprintf(os.Stdout, "no candidates at or above threshold for %s\n", id)

		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"ID", "FILE", "COLUMN", "ROWS"})

	for _, m := range matches {
		tbl.AppendRow(table.Row{m.ID, m.File, m.Column, m.RawCount})
	}

	tbl.Render()
}
