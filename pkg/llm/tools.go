package llm

// ToolDefinition defines a tool that can be called by the LLM.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ParameterProperty defines a parameter property in JSON Schema format.
type ParameterProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// NewToolDefinition creates a new tool definition with standard JSON Schema parameters.
func NewToolDefinition(name, description string, properties map[string]ParameterProperty, required []string) ToolDefinition {
	props := make(map[string]any)
	for k, v := range properties {
		props[k] = map[string]any{
			"type":        v.Type,
			"description": v.Description,
		}
		if len(v.Enum) > 0 {
			props[k].(map[string]any)["enum"] = v.Enum
		}
	}

	return ToolDefinition{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// GetAssistantTools returns the tool definitions for the data assistant.
func GetAssistantTools() []ToolDefinition {
	return []ToolDefinition{
		NewToolDefinition(
			"execute_sql",
			"Run a read-only SQL query against the analytics warehouse and return the result rows. Small aggregated results are automatically enriched with dimensional breakdowns and period comparisons.",
			map[string]ParameterProperty{
				"sql": {
					Type:        "string",
					Description: "The SQL SELECT statement to execute",
				},
			},
			[]string{"sql"},
		),
		NewToolDefinition(
			"save_to_wiki",
			"Publish the result of the previous query as a wiki page so the team can link to it later",
			map[string]ParameterProperty{
				"title": {
					Type:        "string",
					Description: "Title for the wiki page",
				},
				"summary": {
					Type:        "string",
					Description: "Optional short prose summary to put above the result table",
				},
			},
			[]string{"title"},
		),
		NewToolDefinition(
			"export_to_sheet",
			"Export the result of the previous query as a spreadsheet file and return a link to it",
			map[string]ParameterProperty{
				"filename": {
					Type:        "string",
					Description: "Base file name for the workbook, without extension",
				},
				"sheet_name": {
					Type:        "string",
					Description: "Optional sheet tab name (default 'Data')",
				},
			},
			[]string{"filename"},
		),
	}
}
