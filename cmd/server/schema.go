package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"erpstock/internal/infrastructure/storage/postgres"
	"erpstock/internal/infrastructure/storage/postgres/erp_repo"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the columns of the stock and item master tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			poolCfg := postgres.DefaultPoolConfig(cfg.DB.DSN)
			poolCfg.MaxConns = 1
			poolCfg.MinConns = 0
			poolCfg.ApplicationName = cfg.DB.ApplicationName + "-schema"

			pool, err := postgres.NewPool(ctx, poolCfg)
			if err != nil {
				return fmt.Errorf("connect to ERP database: %w", err)
			}
			defer pool.Close()

			cols, err := erp_repo.DescribeTables(ctx, pool, cfg.Layout.Schema, cfg.Layout.Tables())
			if err != nil {
				return err
			}
			if len(cols) == 0 {
				return fmt.Errorf("no columns found for %v in schema %q", cfg.Layout.Tables(), cfg.Layout.Schema)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\t#\tCOLUMN\tTYPE\tNULLABLE")
			for _, c := range cols {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", c.Table, c.Position, c.Name, c.DataType, c.IsNullable)
			}
			return w.Flush()
		},
	}
}
