package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/pipeline"
)

var (
	spaceFile  string
	spaceTier  string
	spaceForce bool
)

var spaceCmd = &cobra.Command{
	Use:   "space",
	Short: "Manage spaces and their certificates",
}

var spaceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a space from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := readSpaceFile(spaceFile)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, "space")
		if err != nil {
			return err
		}
		defer env.Close()

		created, err := env.Spaces.Create(ctx, sp)
		if err != nil {
			return eris.Wrap(err, "create space")
		}
		return printJSON(created)
	},
}

var spaceCertifyCmd = &cobra.Command{
	Use:   "certify <space-id>",
	Short: "Generate a certificate for a space",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "space")
		if err != nil {
			return err
		}
		defer env.Close()

		_, doc, err := env.Pipeline.CertifySpace(ctx, pipeline.SpaceRequest{
			SpaceID: args[0],
			Tier:    model.Tier(spaceTier),
			Force:   spaceForce,
		})
		if err != nil {
			return eris.Wrap(err, "certify space")
		}
		return printJSON(doc)
	},
}

func readSpaceFile(path string) (*model.Space, error) {
	if path == "" {
		return nil, eris.New("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read space file")
	}
	var sp model.Space
	if err := yaml.Unmarshal(data, &sp); err != nil {
		return nil, eris.Wrap(err, "parse space file")
	}
	return &sp, nil
}

func init() {
	spaceCreateCmd.Flags().StringVar(&spaceFile, "file", "", "space YAML file")
	spaceCertifyCmd.Flags().StringVar(&spaceTier, "tier", "normal", "certificate tier (normal or pro)")
	spaceCertifyCmd.Flags().BoolVar(&spaceForce, "force", false, "regenerate even if a certificate exists")
	spaceCmd.AddCommand(spaceCreateCmd, spaceCertifyCmd)
	rootCmd.AddCommand(spaceCmd)
}
