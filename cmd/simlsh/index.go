package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/simlsh/internal/indexsvc"
	"github.com/Sumatoshi-tech/simlsh/pkg/config"
)

func indexCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "index <glob>",
		Short: "Build sketches for every CSV column matching a glob and index them",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runIndex(args[0], server)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "address of a running simlsh serve instance (e.g. http://localhost:8080); ingests locally when empty")

	return cmd
}

func runIndex(pattern, server string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var infos []indexsvc.ColumnInfo

	if server != "" {
		infos, err = remoteIngest(server, pattern)
	} else {
		infos, err = localIngest(cfg, pattern)
	}

	if err != nil {
		return err
	}

	renderColumnTable(infos)

	return nil
}

func localIngest(cfg *config.Config, pattern string) ([]indexsvc.ColumnInfo, error) {
	svc, err := indexsvc.New(cfg.Index, cfg.Ingest, nil)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	infos, err := svc.IngestGlob(context.Background(), pattern, cfg.Ingest.MaxCardinalityPreview)
	if err != nil {
		return nil, fmt.Errorf("ingest %q: %w", pattern, err)
	}

	return infos, nil
}

// ingestRequest is the JSON body POSTed to a running server's /ingest
// endpoint. It carries the glob pattern and an optional cardinality hint
// (zero means the server's configured default): the server re-enumerates and
// re-parses the matching files itself, so no sketch ever crosses the wire.
type ingestRequest struct {
	Pattern        string `json:"pattern"`
	MaxCardinality int    `json:"max_cardinality"`
}

func remoteIngest(server, pattern string) ([]indexsvc.ColumnInfo, error) {
	body, err := json.Marshal(ingestRequest{Pattern: pattern})
	if err != nil {
		return nil, fmt.Errorf("encode ingest request: %w", err)
	}

	resp, err := http.Post(server+"/ingest", "application/json", bytes.NewReader(body)) //nolint:noctx // CLI one-shot request
	if err != nil {
		return nil, fmt.Errorf("post /ingest to %s: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s for /ingest", resp.Status)
	}

	var infos []indexsvc.ColumnInfo

	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		return nil, fmt.Errorf("decode /ingest response: %w", err)
	}

	return infos, nil
}

func renderColumnTable(infos []indexsvc.ColumnInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(os.Stdout, "no columns indexed")

		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"ID", "FILE", "COLUMN", "ROWS", "DISTINCT (EST.)"})

	green := color.New(color.FgGreen).SprintFunc()

	for _, info := range infos {
		tbl.AppendRow(table.Row{
			info.ID, info.File, info.Column,
			humanize.Comma(int64(info.RawCount)),
			green(humanize.Comma(int64(info.DistinctEstimate))),
		})
	}

	tbl.AppendFooter(table.Row{"", "", "", "Total columns", len(infos)})
	tbl.Render()
}
