// Package texte provides the MCP tool searching inside a legal text (law,
// ordinance, decree, order) of the LODA database.
package texte

import (
	"context"

	"github.com/go-training/mcp-legifrance/pkg/core"
	"github.com/go-training/mcp-legifrance/pkg/operation/legal"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	Name     = "rechercher_dans_texte_legal"
	Endpoint = "loda"
)

// Args are the arguments of rechercher_dans_texte_legal. TextID uses the
// AAAA-NUMERO form ("78-17").
type Args struct {
	Search        string `json:"search" validate:"required"`
	TextID        string `json:"text_id,omitempty"`
	Champ         string `json:"champ" validate:"oneof=ALL TITLE TABLE NUM_ARTICLE ARTICLE"`
	TypeRecherche string `json:"type_recherche" validate:"oneof=TOUS_LES_MOTS_DANS_UN_CHAMP EXPRESSION_EXACTE AU_MOINS_UN_MOT"`
	PageSize      int    `json:"page_size" validate:"gte=1,lte=100"`
}

func DefaultArgs() *Args {
	return &Args{
		Champ:         legal.ChampAll,
		TypeRecherche: legal.TypeTousLesMots,
		PageSize:      legal.DefaultPageSize,
	}
}

var RechercherTexteTool = mcp.NewTool(Name,
	mcp.WithDescription(`Recherche un article dans un texte légal (loi, ordonnance, décret, arrêté)
par le numéro du texte et le numéro de l'article. On peut également rechercher
des mots clés ("mots clés" séparés par des espaces) dans une loi précise (n° de loi).

Paramètres:
  - text_id: Le numéro du texte (format AAAA-NUMERO)
  - search: Mots-clés de recherche ou numéro d'article
  - champ: Champ de recherche ("ALL", "TITLE", "TABLE", "NUM_ARTICLE", "ARTICLE")
  - type_recherche: Type de recherche ("TOUS_LES_MOTS_DANS_UN_CHAMP", "EXPRESSION_EXACTE", "AU_MOINS_UN_MOT")
  - page_size: Nombre de résultats (max 100)

Exemples:
  - Pour l'article 7 de la loi 78-17:
    {text_id="78-17", search="7", champ="NUM_ARTICLE"}
  - Les conditions de validité de la signature électronique:
    {search="signature électronique validité conditions"}`),
	mcp.WithString("search",
		mcp.Description("Mots-clés de recherche ou numéro d'article"),
		mcp.Required(),
	),
	mcp.WithString("text_id",
		mcp.Description("Le numéro du texte (format AAAA-NUMERO)"),
	),
	mcp.WithString("champ",
		mcp.Description("Champ de recherche"),
		mcp.Enum("ALL", "TITLE", "TABLE", "NUM_ARTICLE", "ARTICLE"),
		mcp.DefaultString(legal.ChampAll),
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
)

// NewHandler returns the rechercher_dans_texte_legal handler.
func NewHandler(c core.Consulter) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return legal.Run(ctx, c, req, Name, Endpoint, DefaultArgs())
	}
}
