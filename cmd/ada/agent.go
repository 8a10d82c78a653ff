package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ada-engine/internal/application/service"
	"ada-engine/internal/di"
	"ada-engine/internal/domain/entity"
	"ada-engine/internal/infrastructure/userinteraction"
	"ada-engine/internal/usecase/pipeline"
)

var (
	agentProject string
	agentTimeout time.Duration
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Read a task from stdin and run it through a pipeline",
	RunE:  runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentProject, "project", "p", pipeline.DefaultKey, "Project whose pipeline runs the task")
	agentCmd.Flags().DurationVar(&agentTimeout, "timeout", 10*time.Minute, "Maximum run time")
}

func runAgent(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	console := userinteraction.NewConsole(os.Stdin, cmd.OutOrStdout())
	task, err := console.ReadTask("Enter a task for the agent (end with Ctrl+D):")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), agentTimeout)
	defer cancel()

	c, err := di.NewAgentContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	agent, err := c.Pipelines.For(agentProject)
	if err != nil {
		return err
	}

	c.Logger.Info("Task started", "project", agentProject)
	payload := entity.NewAgentPayload(entity.Message{Role: entity.RoleUser, Content: task})
	result, err := agent.Execute(service.WithProjectID(ctx, agentProject), payload)
	if err != nil {
		c.Logger.Error("Task failed", "error", err)
		console.PrintTranscript(payload)
		console.PrintError(err)
		return err
	}

	c.Logger.Info("Task completed", "is_final", result.IsFinal, "messages", len(result.Messages))
	console.PrintTranscript(result)
	return nil
}
