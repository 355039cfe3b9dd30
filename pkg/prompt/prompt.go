// Package prompt loads the MCP prompt catalog and renders its templates.
package prompt

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalog []byte

// ErrUnknownPrompt is returned when rendering a prompt missing from the catalog.
var ErrUnknownPrompt = errors.New("prompt inconnu")

// Catalog holds every prompt template by name.
type Catalog struct {
	Prompts map[string]Template `yaml:"prompts"`
}

// Template describes one prompt.
type Template struct {
	Description string     `yaml:"description"`
	Arguments   []Argument `yaml:"arguments"`
	Messages    []Message  `yaml:"messages"`
}

// Argument is a named value substituted into the messages as {name}.
type Argument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Message is one templated message. Role is "system", "assistant" or "user".
type Message struct {
	Role    string    `yaml:"role"`
	Content []Content `yaml:"content"`
}

// Content is a text part of a message.
type Content struct {
	Type string `yaml:"type"`
	Text string `yaml:"text"`
}

// Load parses a YAML catalog.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	for name, tpl := range c.Prompts {
		for i, msg := range tpl.Messages {
			if _, err := role(msg.Role); err != nil {
				return nil, fmt.Errorf("prompt %s message %d: %w", name, i, err)
			}
			for _, part := range msg.Content {
				if part.Type != "text" {
					return nil, fmt.Errorf("prompt %s message %d: unsupported content type %q", name, i, part.Type)
				}
			}
		}
	}
	return &c, nil
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

// Names returns the prompt names in lexical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Prompts))
	for name := range c.Prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render substitutes vars into the named template.
func (c *Catalog) Render(name string, vars map[string]string) (*mcp.GetPromptResult, error) {
	tpl, ok := c.Prompts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
	}

	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	replacer := strings.NewReplacer(pairs...)

	messages := make([]mcp.PromptMessage, 0, len(tpl.Messages))
	for _, msg := range tpl.Messages {
		r, err := role(msg.Role)
		if err != nil {
			return nil, err
		}
		for _, part := range msg.Content {
			messages = append(messages, mcp.NewPromptMessage(r, mcp.NewTextContent(replacer.Replace(part.Text))))
		}
	}
	return mcp.NewGetPromptResult(tpl.Description, messages), nil
}

// MCP prompts only know user and assistant; system framing is sent as assistant.
func role(name string) (mcp.Role, error) {
	switch name {
	case "user":
		return mcp.RoleUser, nil
	case "assistant", "system":
		return mcp.RoleAssistant, nil
	default:
		return "", fmt.Errorf("unsupported role %q", name)
	}
}

// Register adds every catalog prompt to s.
func Register(s *server.MCPServer, c *Catalog) {
	for _, name := range c.Names() {
		tpl := c.Prompts[name]

		opts := []mcp.PromptOption{mcp.WithPromptDescription(tpl.Description)}
		for _, arg := range tpl.Arguments {
			argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(arg.Description)}
			if arg.Required {
				argOpts = append(argOpts, mcp.RequiredArgument())
			}
			opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
		}

		s.AddPrompt(mcp.NewPrompt(name, opts...), Handler(c, name))
	}
}

// Handler returns the get-prompt handler rendering the named template.
func Handler(c *Catalog, name string) server.PromptHandlerFunc {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return c.Render(name, req.Params.Arguments)
	}
}
