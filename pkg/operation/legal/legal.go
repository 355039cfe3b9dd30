// Package legal holds the plumbing shared by the Legifrance search tools:
// argument decoding, validation, payload building and result rendering.
package legal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-training/mcp-legifrance/pkg/core"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
)

// OfficialLinkReminder is appended to every plain text result.
const OfficialLinkReminder = "\n\n🔗 Mentionne systématiquement le lien officiel dans ta réponse pour pouvoir y accéder."

// Shared enumerations of the search endpoints.
const (
	ChampAll        = "ALL"
	SortPertinence  = "PERTINENCE"
	TypeTousLesMots = "TOUS_LES_MOTS_DANS_UN_CHAMP"

	DefaultPageSize = 10
	MaxPageSize     = 100
)

var (
	// Sorts lists the accepted sort orders.
	Sorts = []string{"PERTINENCE", "DATE_ASC", "DATE_DESC"}
	// SearchTypes lists the accepted search types.
	SearchTypes = []string{"TOUS_LES_MOTS_DANS_UN_CHAMP", "EXPRESSION_EXACTE", "AU_MOINS_UN_MOT"}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode copies the tool call arguments into dst. Fields absent from the
// call keep the value dst already holds, which is how defaults are applied.
func Decode(req mcp.CallToolRequest, dst any) error {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// Validate checks args against its validate tags.
func Validate(args any) error {
	err := validate.Struct(args)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, after, ok := strings.Cut(field, "."); ok {
		field = after
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on %q", field, fe.Tag())
	}
}

// Payload turns decoded arguments into the request body. Optional fields
// are expected to carry omitempty so that unset values are left out.
func Payload(args any) (map[string]any, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Run executes a search tool: decode, validate, call endpoint and render.
// Argument problems are reported as a tool error, never as a Go error.
func Run(
	ctx context.Context,
	c core.Consulter,
	req mcp.CallToolRequest,
	tool, endpoint string,
	args any,
) (*mcp.CallToolResult, error) {
	logger := core.LoggerFromCtx(ctx)

	if err := Decode(req, args); err != nil {
		return toolError(ctx, tool, err), nil
	}
	if err := Validate(args); err != nil {
		return toolError(ctx, tool, err), nil
	}
	payload, err := Payload(args)
	if err != nil {
		return toolError(ctx, tool, err), nil
	}

	logger.Info("Calling Legifrance tool", "tool", tool, "endpoint", endpoint, "arguments", payload)

	result := c.MakeAPIRequest(ctx, endpoint, payload)
	res, err := Format(result)
	if err != nil {
		msg := fmt.Sprintf("Erreur API lors de l'exécution de %s: %v", tool, err)
		logger.Error(msg)
		return mcp.NewToolResultError(msg), nil
	}
	return res, nil
}

func toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("Erreur lors de l'exécution de %s: %v", tool, err)
	core.LoggerFromCtx(ctx).Error(msg)
	return mcp.NewToolResultError(msg)
}

// Format renders an endpoint result as tool output. An {"error": m} map
// becomes an error result with text m, a string gets the official link
// reminder, anything else is rendered as indented JSON.
func Format(result any) (*mcp.CallToolResult, error) {
	switch v := result.(type) {
	case map[string]any:
		if msg, ok := v["error"]; ok {
			return mcp.NewToolResultError(fmt.Sprint(msg)), nil
		}
	case string:
		return mcp.NewToolResultText(v + OfficialLinkReminder), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(strings.TrimSuffix(buf.String(), "\n")), nil
}
