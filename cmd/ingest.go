package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rumoo/internal/intake"
	"github.com/sells-group/rumoo/internal/model"
)

var (
	ingestURL  string
	ingestFile string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest one listing from a URL or a captured listing JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := ingestRequest()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Router.Ingest(ctx, req)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}
		return printJSON(res)
	},
}

func ingestRequest() (intake.Request, error) {
	switch {
	case ingestFile != "":
		data, err := os.ReadFile(ingestFile)
		if err != nil {
			return intake.Request{}, eris.Wrap(err, "read listing file")
		}
		var l model.ListingCapture
		if err := json.Unmarshal(data, &l); err != nil {
			return intake.Request{}, eris.Wrap(err, "parse listing file")
		}
		return intake.FullCapture(l), nil
	case ingestURL != "":
		return intake.URLOnly(ingestURL), nil
	default:
		return intake.Request{}, eris.New("one of --url or --file is required")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "listing URL (url-only intake)")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "captured listing JSON (full-capture intake)")
	ingestCmd.MarkFlagsMutuallyExclusive("url", "file")
	rootCmd.AddCommand(ingestCmd)
}
