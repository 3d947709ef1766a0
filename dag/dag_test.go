package dag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llmdevops/orchestrator/workflow"
)

func stepsLinear() []workflow.Step {
	return []workflow.Step{
		{ID: "a", Type: workflow.StepTransform, Config: workflow.TransformConfig{}},
		{ID: "b", Type: workflow.StepTransform, DependsOn: []string{"a"}, Config: workflow.TransformConfig{}},
		{ID: "c", Type: workflow.StepTransform, DependsOn: []string{"b"}, Config: workflow.TransformConfig{}},
	}
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestBuildProducesTopologicalOrder(t *testing.T) {
	w := &workflow.Workflow{Name: "x", Version: "1", Steps: stepsLinear()}
	d, err := Build(w)
	require.NoError(t, err)
	order := d.Order()
	require.Len(t, order, 3)
	require.Less(t, indexOf(order, "a"), indexOf(order, "b"))
	require.Less(t, indexOf(order, "b"), indexOf(order, "c"))
}

func TestBuildEmptyWorkflowProducesEmptyOrder(t *testing.T) {
	w := &workflow.Workflow{Name: "x", Version: "1"}
	d, err := Build(w)
	require.NoError(t, err)
	require.Empty(t, d.Order())
}

func TestBuildDetectsSelfLoop(t *testing.T) {
	w := &workflow.Workflow{Name: "x", Version: "1", Steps: []workflow.Step{
		{ID: "a", Type: workflow.StepTransform, DependsOn: []string{"a"}, Config: workflow.TransformConfig{}},
	}}
	_, err := Build(w)
	var cycleErr *CycleDetectedError
	require.ErrorAs(t, err, &cycleErr)
	require.Equal(t, []string{"a", "a"}, cycleErr.Path)
}

func TestBuildDetectsTwoNodeCycle(t *testing.T) {
	w := &workflow.Workflow{Name: "x", Version: "1", Steps: []workflow.Step{
		{ID: "x", Type: workflow.StepTransform, DependsOn: []string{"y"}, Config: workflow.TransformConfig{}},
		{ID: "y", Type: workflow.StepTransform, DependsOn: []string{"x"}, Config: workflow.TransformConfig{}},
	}}
	_, err := Build(w)
	var cycleErr *CycleDetectedError
	require.ErrorAs(t, err, &cycleErr)
	require.Equal(t, cycleErr.Path[0], cycleErr.Path[len(cycleErr.Path)-1])
	require.Contains(t, cycleErr.Path, "x")
	require.Contains(t, cycleErr.Path, "y")
}

func TestBuildRejectsUnknownDependency(t *testing.T) {
	w := &workflow.Workflow{Name: "x", Version: "1", Steps: []workflow.Step{
		{ID: "a", Type: workflow.StepTransform, DependsOn: []string{"missing"}, Config: workflow.TransformConfig{}},
	}}
	_, err := Build(w)
	var invalidErr *InvalidDagError
	require.ErrorAs(t, err, &invalidErr)
}

func TestBuildRejectsDuplicateStepID(t *testing.T) {
	w := &workflow.Workflow{Name: "x", Version: "1", Steps: []workflow.Step{
		{ID: "a", Type: workflow.StepTransform, Config: workflow.TransformConfig{}},
		{ID: "a", Type: workflow.StepTransform, Config: workflow.TransformConfig{}},
	}}
	_, err := Build(w)
	var invalidErr *InvalidDagError
	require.ErrorAs(t, err, &invalidErr)
}

func TestPredecessorsAndSuccessors(t *testing.T) {
	w := &workflow.Workflow{Name: "x", Version: "1", Steps: stepsLinear()}
	d, err := Build(w)
	require.NoError(t, err)

	require.Equal(t, []string{"a"}, d.Predecessors("b"))
	require.Equal(t, []string{"b"}, d.Successors("a"))
	require.Empty(t, d.Predecessors("a"))
	require.Empty(t, d.Successors("c"))
}

func TestLevelsGroupsParallelSteps(t *testing.T) {
	w := &workflow.Workflow{Name: "x", Version: "1", Steps: []workflow.Step{
		{ID: "a", Type: workflow.StepTransform, Config: workflow.TransformConfig{}},
		{ID: "b", Type: workflow.StepTransform, DependsOn: []string{"a"}, Config: workflow.TransformConfig{}},
		{ID: "c", Type: workflow.StepTransform, DependsOn: []string{"a"}, Config: workflow.TransformConfig{}},
		{ID: "d", Type: workflow.StepTransform, DependsOn: []string{"b", "c"}, Config: workflow.TransformConfig{}},
	}}
	d, err := Build(w)
	require.NoError(t, err)

	levels := d.Levels()
	require.Len(t, levels, 3)
	require.ElementsMatch(t, []string{"b", "c"}, levels[1])
}

func TestStatsReportsMaxParallelismAndDepth(t *testing.T) {
	w := &workflow.Workflow{Name: "x", Version: "1", Steps: []workflow.Step{
		{ID: "a", Type: workflow.StepTransform, Config: workflow.TransformConfig{}},
		{ID: "b", Type: workflow.StepTransform, DependsOn: []string{"a"}, Config: workflow.TransformConfig{}},
		{ID: "c", Type: workflow.StepTransform, DependsOn: []string{"a"}, Config: workflow.TransformConfig{}},
	}}
	d, err := Build(w)
	require.NoError(t, err)

	stats := d.Stats()
	require.Equal(t, 3, stats.TotalNodes)
	require.Equal(t, 2, stats.MaxParallelism)
	require.Equal(t, 2, stats.Depth)
}
