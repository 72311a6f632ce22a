// Command runtime is the CLI façade for the Workflow Runtime (§4.7): it
// loads a workflow config and a JSON inputs document, runs the graph
// in-process, and prints the result.
//
// Grounded on the cobra command-tree pattern used by the pack's CLI
// repos (e.g. teradata-labs/loom's cmd/loom) for a stdlib-replacement
// flag surface.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/bootstrap"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/codeexec"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/llm"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/runtime"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/tracker"
	"github.com/thatAverageGuy/configurable-agents-sub001/repository"
)

var (
	configPath string
	inputsPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workflow config once and print its result",
	RunE:  runWorkflow,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to the workflow YAML config")
	runCmd.Flags().StringVar(&inputsPath, "inputs", "", "path to a JSON file of inputs (- for stdin, omit for {})")
	runCmd.MarkFlagRequired("config")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	comps, err := bootstrap.Setup(ctx, "runtime", bootstrap.WithoutRedis())
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	defer comps.Shutdown(ctx)

	inputs, err := loadInputs(inputsPath)
	if err != nil {
		return fmt.Errorf("load inputs: %w", err)
	}

	var recorder runtime.Recorder
	if comps.DB != nil {
		recorder = repository.NewExecutionRepository(comps.DB)
	}
	rt := runtime.New(llm.NewStub(nil), codeexec.Noop{}, tracker.Noop{}, recorder)

	result, err := rt.Run(ctx, configPath, inputs)
	if err != nil {
		return fmt.Errorf("run workflow: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func loadInputs(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	var raw []byte
	var err error
	if path == "-" {
		raw, err = os.ReadFile("/dev/stdin")
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	inputs := map[string]any{}
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, fmt.Errorf("parse inputs json: %w", err)
	}
	return inputs, nil
}

func main() {
	root := &cobra.Command{Use: "runtime"}
	root.AddCommand(runCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
