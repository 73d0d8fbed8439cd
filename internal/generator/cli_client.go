package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// CLIClient shells out to the claude CLI for local dev generation.
type CLIClient struct {
	cliPath string
}

func NewCLIClient(cliPath string) *CLIClient {
	return &CLIClient{cliPath: cliPath}
}

// cliResult is the envelope printed by `--output-format json`.
type cliResult struct {
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *CLIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cmd := exec.CommandContext(ctx,
		c.cliPath,
		"--print",
		"--output-format", "json",
		"--system-prompt", systemPrompt,
		"--max-turns", "1",
	)
	cmd.Stdin = strings.NewReader(userPrompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("claude CLI error: %w\nstderr: %s", err, stderr.String())
	}
	return parseCLIOutput(stdout.Bytes())
}

// parseCLIOutput accepts the JSON envelope and falls back to plain text for
// CLI builds that ignore the output format flag.
func parseCLIOutput(out []byte) (*LLMResponse, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("claude CLI returned empty response")
	}

	var env cliResult
	if err := json.Unmarshal(trimmed, &env); err == nil && env.Result != "" {
		if env.IsError {
			return nil, fmt.Errorf("claude CLI reported error: %s", env.Result)
		}
		return &LLMResponse{
			Content:      strings.TrimSpace(env.Result),
			PromptTokens: env.Usage.InputTokens,
			OutputTokens: env.Usage.OutputTokens,
		}, nil
	}

	return &LLMResponse{Content: string(trimmed)}, nil
}
