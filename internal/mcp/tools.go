package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool names.
const (
	ToolConvert = "brush_convert"
	ToolInspect = "brush_inspect"
)

func convertToolDef() mcp.Tool {
	return mcp.NewTool(ToolConvert,
		mcp.WithDescription("Convert a Clip Studio Paint .sut sub-tool into Procreate .brush files (and a .brushset when it holds several stamps)."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Path to the .sut file")),
		mcp.WithString("out_dir", mcp.Required(), mcp.Description("Directory to write brushes into; created if missing")),
		mcp.WithString("template", mcp.Description("Path to a Seed.brush template; defaults to the configured template")),
		mcp.WithBoolean("skip_stamps", mcp.Description("Do not write the raw stamp PNGs next to the brushes")),
	)
}

func inspectToolDef() mcp.Tool {
	return mcp.NewTool(ToolInspect,
		mcp.WithDescription("Report the stamps and mapped brush parameters of a .sut file without writing anything."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Path to the .sut file")),
		mcp.WithString("template", mcp.Description("Optional Seed.brush to check the mapped fields against")),
		mcp.WithString("format", mcp.Description("Output format: json (default) or markdown"), mcp.Enum("json", "markdown")),
	)
}
