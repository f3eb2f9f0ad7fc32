package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/ports"
)

// defaultCLITimeout bounds one CLI invocation. Coding-agent turns can edit
// files and run builds, so this is deliberately generous.
const defaultCLITimeout = 600 * time.Second

// cliCommands maps providers to their default CLI binary.
var cliCommands = map[string]string{
	"claude": "claude",
	"gemini": "gemini",
}

// CLIExecutor runs a provider's local CLI tool in headless print mode inside
// a target project directory, so the tool can read and modify that project.
type CLIExecutor struct {
	provider  string
	command   string
	targetDir string
	timeout   time.Duration
	logger    ports.Logger
}

var _ ports.Executor = (*CLIExecutor)(nil)

// NewCLIExecutor builds a CLI executor from config. Providers without a
// known CLI binary need an explicit command in the config.
func NewCLIExecutor(cfg domain.CLIExecutorSettings, log ports.Logger) (*CLIExecutor, error) {
	command := cfg.Command
	if command == "" {
		command = cliCommands[cfg.Provider]
	}
	if command == "" {
		return nil, fmt.Errorf("no CLI command known for provider %q", cfg.Provider)
	}

	timeout := defaultCLITimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &CLIExecutor{
		provider:  cfg.Provider,
		command:   command,
		targetDir: cfg.TargetDir,
		timeout:   timeout,
		logger:    log,
	}, nil
}

func (e *CLIExecutor) ProviderName() string {
	return e.provider + "-cli"
}

// IsAvailable requires both the CLI binary on PATH and an accessible target
// directory.
func (e *CLIExecutor) IsAvailable() bool {
	if _, err := exec.LookPath(e.command); err != nil {
		return false
	}
	info, err := os.Stat(e.targetDir)
	return err == nil && info.IsDir()
}

// Execute invokes the CLI with the prompt, prepending conversation history
// as plain text since headless CLI runs are stateless between invocations.
func (e *CLIExecutor) Execute(ctx context.Context, prompt string, history []domain.Message, params domain.ExecuteParams) (domain.ExecutionResult, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	full := renderPromptWithHistory(prompt, history)
	cmd := exec.CommandContext(ctx, e.command, "-p", full)
	cmd.Dir = e.targetDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Info("running CLI executor", map[string]interface{}{
		"provider": e.ProviderName(), "dir": e.targetDir,
	})

	err := cmd.Run()
	elapsed := time.Since(start).Seconds()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.FailureResult(fmt.Sprintf("%s timed out after %s", e.ProviderName(), e.timeout), stderr.String(), elapsed), nil
		}
		return domain.FailureResult(fmt.Sprintf("%s failed: %v", e.ProviderName(), err), stderr.String(), elapsed), nil
	}

	return domain.SuccessResult(strings.TrimSpace(stdout.String()), stderr.String(), elapsed), nil
}

// renderPromptWithHistory flattens prior turns ahead of the new prompt.
func renderPromptWithHistory(prompt string, history []domain.Message) string {
	if len(history) == 0 {
		return prompt
	}
	var builder strings.Builder
	builder.WriteString("Previous conversation:\n")
	for _, msg := range history {
		label := "User"
		if msg.Role == domain.RoleAssistant {
			label = "Assistant"
		}
		builder.WriteString(label)
		builder.WriteString(": ")
		builder.WriteString(msg.Content)
		builder.WriteString("\n")
	}
	builder.WriteString("\nNew request:\n")
	builder.WriteString(prompt)
	return builder.String()
}
