package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thadeucbr/mcp-tools/client"
)

const defaultEndpoint = "http://localhost:8080/mcp"

// target selects the server a client command talks to: an HTTP endpoint,
// or a stdio server started from --command.
type target struct {
	endpoint string
	command  string
	timeout  time.Duration
}

func (t *target) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.endpoint, "endpoint", defaultEndpoint, "server MCP endpoint")
	cmd.Flags().StringVar(&t.command, "command", "", `start a stdio server instead, e.g. "mcp-tools serve"`)
	cmd.Flags().DurationVar(&t.timeout, "timeout", 2*time.Minute, "request timeout")
}

func (t *target) connect(cmd *cobra.Command) (*client.Client, error) {
	var tr client.Transport = client.NewHTTPTransport(t.endpoint)
	name := t.endpoint
	if t.command != "" {
		argv := strings.Fields(t.command)
		stdio, err := client.NewStdioTransport(argv[0], argv[1:]...)
		if err != nil {
			return nil, err
		}
		tr, name = stdio, argv[0]
	}

	c := client.New(tr, client.WithTimeout(t.timeout))
	if _, err := c.Initialize(cmd.Context()); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialize %s: %w", name, err)
	}
	return c, nil
}

func newToolsCmd() *cobra.Command {
	var t target

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools of a server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := t.connect(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			tools, err := c.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			printTools(cmd.OutOrStdout(), tools)
			return nil
		},
	}
	t.bind(cmd)
	return cmd
}

func newCallCmd() *cobra.Command {
	var t target
	var rawArgs string

	cmd := &cobra.Command{
		Use:     "call <tool>",
		Short:   "Call a tool on a server",
		Example: `  mcp-tools call meal_register --args '{"operation":"daily_summary","userId":"5511999990000"}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arguments map[string]any
			if err := json.Unmarshal([]byte(rawArgs), &arguments); err != nil {
				return fmt.Errorf("--args must be a JSON object: %w", err)
			}

			c, err := t.connect(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.CallTool(cmd.Context(), args[0], arguments)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Text())
			if result.IsError {
				return fmt.Errorf("tool %s failed", args[0])
			}
			return nil
		},
	}
	t.bind(cmd)
	cmd.Flags().StringVar(&rawArgs, "args", "{}", "tool arguments as JSON")
	return cmd
}

func printTools(w io.Writer, tools []client.Tool) {
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	width := 0
	for _, t := range tools {
		width = max(width, len(t.Name))
	}
	for _, t := range tools {
		desc, _, _ := strings.Cut(t.Description, ". ")
		fmt.Fprintf(w, "%-*s  %s\n", width, t.Name, desc)
	}
}
