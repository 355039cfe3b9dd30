package operation

import (
	"github.com/go-training/mcp-legifrance/pkg/core"
	"github.com/go-training/mcp-legifrance/pkg/operation/code"
	"github.com/go-training/mcp-legifrance/pkg/operation/jurisprudence"
	"github.com/go-training/mcp-legifrance/pkg/operation/texte"

	"github.com/mark3labs/mcp-go/server"
)

/*
RegisterLegalTools registers the Legifrance search tools to the specified MCPServer instance.

Parameters:
  - s: Pointer to the MCPServer instance where the tools will be registered.
  - c: The Consulter every tool sends its search payload to.

This function registers rechercher_code, rechercher_jurisprudence_judiciaire and
rechercher_dans_texte_legal, all of them read operations.
*/
func RegisterLegalTools(s *server.MCPServer, c core.Consulter) {
	s.AddTools(LegalTools(c).Tools()...)
}

// LegalTools returns the registry holding the Legifrance search tools.
func LegalTools(c core.Consulter) *Tool {
	tool := &Tool{}

	tool.RegisterRead(server.ServerTool{
		Tool:    code.RechercherCodeTool,
		Handler: code.NewHandler(c),
	})
	tool.RegisterRead(server.ServerTool{
		Tool:    jurisprudence.RechercherJurisprudenceTool,
		Handler: jurisprudence.NewHandler(c),
	})
	tool.RegisterRead(server.ServerTool{
		Tool:    texte.RechercherTexteTool,
		Handler: texte.NewHandler(c),
	})

	return tool
}

/*
Tool manages collections of tools to be registered with an MCPServer.

Fields:
  - write: Stores all ServerTools registered as write operations.
  - read: Stores all ServerTools registered as read operations.
*/
type Tool struct {
	write []server.ServerTool
	read  []server.ServerTool
}

/*
RegisterWrite registers a ServerTool as a write operation.

Parameters:
  - s: The ServerTool instance to register.
*/
func (t *Tool) RegisterWrite(s server.ServerTool) {
	t.write = append(t.write, s)
}

/*
RegisterRead registers a ServerTool as a read operation.

Parameters:
  - s: The ServerTool instance to register.
*/
func (t *Tool) RegisterRead(s server.ServerTool) {
	t.read = append(t.read, s)
}

/*
Tools returns all registered ServerTools, write tools first followed by read tools.
*/
func (t *Tool) Tools() []server.ServerTool {
	tools := make([]server.ServerTool, 0, len(t.write)+len(t.read))
	tools = append(tools, t.write...)
	tools = append(tools, t.read...)
	return tools
}

// Names returns the names of all registered tools, in Tools order.
func (t *Tool) Names() []string {
	tools := t.Tools()
	names := make([]string, 0, len(tools))
	for _, st := range tools {
		names = append(names, st.Tool.Name)
	}
	return names
}
