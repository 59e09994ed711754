package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chris/researchhub/internal/llm"
	"github.com/chris/researchhub/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool catalog offered to the model",
	Long: `Print the tool catalog as YAML: every tool's name, description and
parameter schema, in the order the model sees them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := tools.NewRegistry(tools.Catalog(tools.Deps{})...)
		if err != nil {
			return err
		}
		return writeCatalog(reg.Definitions())
	},
}

func writeCatalog(defs []llm.ToolDefinition) error {
	type entry struct {
		Name        string         `yaml:"name"`
		Description string         `yaml:"description"`
		Parameters  map[string]any `yaml:"parameters"`
	}
	out := make([]entry, len(defs))
	for i, d := range defs {
		out[i] = entry{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(out)
}
