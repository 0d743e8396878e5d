package main

import (
	"github.com/spf13/cobra"

	"embedd/pkg/types"
)

var infoLoad bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print model registry and lifecycle information",
	Long: `Print the resolved backend, the local model registry and the health
report. With --load the model is loaded first, which verifies that the
configured model and backend actually work.`,
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoLoad, "load", false, "Load the model before reporting")
	rootCmd.AddCommand(infoCmd)
}

type infoReport struct {
	Backend   string               `json:"backend"`
	ModelsDir string               `json:"models_dir"`
	Models    []types.Model        `json:"models"`
	Health    types.HealthResponse `json:"health"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := buildApp(globalConfig, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if infoLoad {
		if err := a.svc.Warm(commandContext(cmd)); err != nil {
			return err
		}
	}
	models := a.registry
	if models == nil {
		models = []types.Model{}
	}
	return printJSON(cmd.OutOrStdout(), infoReport{
		Backend:   a.backend,
		ModelsDir: globalConfig.ModelsDir,
		Models:    models,
		Health:    a.svc.Health(),
	})
}
