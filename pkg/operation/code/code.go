// Package code provides the MCP tool searching articles of the French legal
// codes.
package code

import (
	"context"

	"github.com/go-training/mcp-legifrance/pkg/core"
	"github.com/go-training/mcp-legifrance/pkg/operation/legal"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	// Name is the MCP tool name.
	Name = "rechercher_code"
	// Endpoint is the Legifrance consult endpoint the tool searches.
	Endpoint = "code"
)

// Args are the arguments of rechercher_code.
type Args struct {
	Search        string `json:"search" validate:"required"`
	CodeName      string `json:"code_name" validate:"required"`
	Champ         string `json:"champ" validate:"oneof=ALL TITLE TABLE NUM_ARTICLE ARTICLE"`
	Sort          string `json:"sort" validate:"oneof=PERTINENCE DATE_ASC DATE_DESC"`
	TypeRecherche string `json:"type_recherche" validate:"oneof=TOUS_LES_MOTS_DANS_UN_CHAMP EXPRESSION_EXACTE AU_MOINS_UN_MOT"`
	PageSize      int    `json:"page_size" validate:"gte=1,lte=100"`
	FetchAll      bool   `json:"fetch_all"`
}

// DefaultArgs returns Args holding the default of every optional argument.
func DefaultArgs() *Args {
	return &Args{
		Champ:         legal.ChampAll,
		Sort:          legal.SortPertinence,
		TypeRecherche: legal.TypeTousLesMots,
		PageSize:      legal.DefaultPageSize,
	}
}

// RechercherCodeTool defines the MCP tool searching the legal codes.
var RechercherCodeTool = mcp.NewTool(Name,
	mcp.WithDescription(`Recherche des articles juridiques dans les codes de loi français.

Paramètres:
  - search: Termes de recherche (ex: "contrat de travail", "légitime défense")
  - code_name: Nom du code juridique (ex: "Code civil", "Code du travail")
  - champ: Champ de recherche ("ALL", "TITLE", "TABLE", "NUM_ARTICLE", "ARTICLE")
  - sort: Tri des résultats ("PERTINENCE", "DATE_ASC", "DATE_DESC")
  - type_recherche: Type de recherche
  - page_size: Nombre de résultats (max 100)
  - fetch_all: Récupérer tous les résultats

Exemples:
  - Pour le PACS dans le Code civil:
    {search="pacte civil de solidarité", code_name="Code civil"}`),
	mcp.WithString("search",
		mcp.Description("Termes de recherche"),
		mcp.Required(),
	),
	mcp.WithString("code_name",
		mcp.Description("Nom du code juridique (ex: \"Code civil\")"),
		mcp.Required(),
	),
	mcp.WithString("champ",
		mcp.Description("Champ de recherche"),
		mcp.Enum("ALL", "TITLE", "TABLE", "NUM_ARTICLE", "ARTICLE"),
		mcp.DefaultString(legal.ChampAll),
	),
	mcp.WithString("sort",
		mcp.Description("Tri des résultats"),
		mcp.Enum(legal.Sorts...),
		mcp.DefaultString(legal.SortPertinence),
	),
	mcp.WithString("type_recherche",
		mcp.Description("Type de recherche"),
		mcp.Enum(legal.SearchTypes...),
		mcp.DefaultString(legal.TypeTousLesMots),
	),
	mcp.WithNumber("page_size",
		mcp.Description("Nombre de résultats (max 100)"),
		mcp.Min(1),
		mcp.Max(legal.MaxPageSize),
		mcp.DefaultNumber(legal.DefaultPageSize),
	),
	mcp.WithBoolean("fetch_all",
		mcp.Description("Récupérer tous les résultats"),
		mcp.DefaultBool(false),
	),
)

// NewHandler returns the rechercher_code handler sending searches through c.
func NewHandler(c core.Consulter) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return legal.Run(ctx, c, req, Name, Endpoint, DefaultArgs())
	}
}
