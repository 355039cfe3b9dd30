// Package jurisprudence provides the MCP tool searching judicial case law
// (JURI database).
package jurisprudence

import (
	"context"

	"github.com/go-training/mcp-legifrance/pkg/core"
	"github.com/go-training/mcp-legifrance/pkg/operation/legal"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	Name     = "rechercher_jurisprudence_judiciaire"
	Endpoint = "juri"
)

// Args are the arguments of rechercher_jurisprudence_judiciaire.
type Args struct {
	Search                string   `json:"search" validate:"required"`
	PublicationBulletin   []string `json:"publication_bulletin,omitempty" validate:"omitempty,dive,oneof=T F"`
	Sort                  string   `json:"sort" validate:"oneof=PERTINENCE DATE_ASC DATE_DESC"`
	Champ                 string   `json:"champ" validate:"oneof=ALL TITLE ABSTRATS TEXTE RESUMES NUM_AFFAIRE"`
	TypeRecherche         string   `json:"type_recherche" validate:"oneof=TOUS_LES_MOTS_DANS_UN_CHAMP EXPRESSION_EXACTE AU_MOINS_UN_MOT"`
	PageSize              int      `json:"page_size" validate:"gte=1,lte=100"`
	FetchAll              bool     `json:"fetch_all"`
	JuriKeys              []string `json:"juri_keys,omitempty"`
	JuridictionJudiciaire []string `json:"juridiction_judiciaire,omitempty" validate:"omitempty,dive,required"`
}

func DefaultArgs() *Args {
	return &Args{
		Sort:          legal.SortPertinence,
		Champ:         legal.ChampAll,
		TypeRecherche: legal.TypeTousLesMots,
		PageSize:      legal.DefaultPageSize,
	}
}

var stringItems = map[string]any{"type": "string"}

// RechercherJurisprudenceTool defines the MCP tool searching case law.
var RechercherJurisprudenceTool = mcp.NewTool(Name,
	mcp.WithDescription(`Recherche des jurisprudences judiciaires dans la base JURI de Legifrance.

Paramètres:
  - search: Termes ou numéros d'affaires à rechercher
  - publication_bulletin: Si publiée au bulletin ['T'] sinon ['F']
  - sort: Tri des résultats ("PERTINENCE", "DATE_DESC", "DATE_ASC")
  - champ: Champ de recherche ("ALL", "TITLE", "ABSTRATS", "TEXTE", "RESUMES", "NUM_AFFAIRE")
  - type_recherche: Type de recherche
  - page_size: Nombre de résultats (max. 100)
  - fetch_all: Récupérer tous les résultats
  - juri_keys: Mots-clés pour extraire des champs comme 'titre'. Par défaut,
    le titre, le texte et les résumés sont extraits
  - juridiction_judiciaire: Liste des juridictions à inclure parmi
    ['Cour de cassation', 'Juridictions d'appel']

Exemples:
  - Obtenir un panorama de la jurisprudence par mots clés:
    search="tierce opposition salarié société liquidation", page_size=100, juri_keys=['titre']
  - Obtenir toutes les jurisprudences sur la signature électronique:
    search="signature électronique", fetch_all=true, juri_keys=['titre', 'sommaire']`),
	mcp.WithString("search",
		mcp.Description("Termes ou numéros d'affaires à rechercher"),
		mcp.Required(),
	),
	mcp.WithArray("publication_bulletin",
		mcp.Description("Si publiée au bulletin ['T'] sinon ['F']"),
		mcp.Items(map[string]any{"type": "string", "enum": []string{"T", "F"}}),
	),
	mcp.WithString("sort",
		mcp.Description("Tri des résultats"),
		mcp.Enum(legal.Sorts...),
		mcp.DefaultString(legal.SortPertinence),
	),
	mcp.WithString("champ",
		mcp.Description("Champ de recherche"),
		mcp.Enum("ALL", "TITLE", "ABSTRATS", "TEXTE", "RESUMES", "NUM_AFFAIRE"),
		mcp.DefaultString(legal.ChampAll),
	),
	mcp.WithString("type_recherche",
		mcp.Description("Type de recherche"),
		mcp.Enum(legal.SearchTypes...),
		mcp.DefaultString(legal.TypeTousLesMots),
	),
	mcp.WithNumber("page_size",
		mcp.Description("Nombre de résultats (max. 100)"),
		mcp.Min(1),
		mcp.Max(legal.MaxPageSize),
		mcp.DefaultNumber(legal.DefaultPageSize),
	),
	mcp.WithBoolean("fetch_all",
		mcp.Description("Récupérer tous les résultats"),
		mcp.DefaultBool(false),
	),
	mcp.WithArray("juri_keys",
		mcp.Description("Mots-clés pour extraire des champs comme 'titre'"),
		mcp.Items(stringItems),
	),
	mcp.WithArray("juridiction_judiciaire",
		mcp.Description("Liste des juridictions à inclure"),
		mcp.Items(stringItems),
	),
)

// NewHandler returns the rechercher_jurisprudence_judiciaire handler.
func NewHandler(c core.Consulter) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return legal.Run(ctx, c, req, Name, Endpoint, DefaultArgs())
	}
}
