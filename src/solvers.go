package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Table of supported SMT solvers.
 *
 * Description:	The table is kept as embedded YAML so adding a solver
 *		does not require touching the session code.
 *
 *------------------------------------------------------------------*/

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed solvers.yaml
var solversYaml []byte

type SmtSolverCmd struct {
	Name                  string
	Command               string   `yaml:"command"`
	Args                  []string `yaml:"args"`
	SupportsUF            bool     `yaml:"supports-uf"`
	SupportsCheckAssuming bool     `yaml:"supports-check-assuming"`
}

type solverTable struct {
	Solvers map[string]SmtSolverCmd `yaml:"solvers"`
}

var solverConfigs map[string]SmtSolverCmd

func load_solver_configs() {
	if solverConfigs != nil {
		return
	}
	var table solverTable
	if err := yaml.Unmarshal(solversYaml, &table); err != nil {
		panic(fmt.Sprintf("embedded solvers.yaml is broken: %s", err))
	}
	solverConfigs = table.Solvers
	for name, cmd := range solverConfigs {
		cmd.Name = name
		solverConfigs[name] = cmd
	}
}

func solver_by_name(name string) (SmtSolverCmd, error) {
	load_solver_configs()
	var cmd, ok = solverConfigs[name]
	if !ok {
		return SmtSolverCmd{}, fmt.Errorf("unknown solver %q", name)
	}
	return cmd, nil
}

// logic returns the SMT logic to use with this solver.
func (cmd SmtSolverCmd) logic() string {
	if cmd.Name == "z3" {
		return "ALL"
	}
	if cmd.SupportsUF {
		return "QF_AUFBV"
	}
	return "QF_ABV"
}
