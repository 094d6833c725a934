package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/maintenance"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fail stuck pipeline runs and expire old confirmation links once",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sweep"); err != nil {
			return err
		}
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		r, err := maintenance.NewSweeper(st, cfg.Maintenance).Sweep(ctx)
		if err != nil {
			return eris.Wrap(err, "sweep")
		}
		zap.L().Info("sweep finished", zap.Int("interrupted", r.Interrupted), zap.Int("expired", r.Expired))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
