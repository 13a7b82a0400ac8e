package tools

import "github.com/mkale/sleuth/llm"

// Schemas returns the static catalogue describing the three tools to the
// model. Passed verbatim to the LLM client on every call.
func Schemas() []llm.ToolSchema {
	return []llm.ToolSchema{
		{
			Name: "search",
			Description: "Search Google via Bright Data SERP API. Returns organic results " +
				"with title, url, and snippet. Use for finding web pages, documents, " +
				"download links, company information, or any web query.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The Google search query string.",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name: "scrape_page",
			Description: "Scrape a web page via Bright Data Web Unlocker. Returns the page " +
				"content reduced to clean readable text. Use this to read any web page, " +
				"find links, extract information, or navigate sites. The content is " +
				"automatically cleaned — HTML tags, scripts, and navigation elements " +
				"are removed.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "The full URL of the page to scrape.",
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name: "download_file",
			Description: "Download a file (PDF, XLSX, CSV, etc.) through Bright Data proxy " +
				"and save it to disk. Returns file metadata including size, content " +
				"type, and the original filename from the URL. After downloading, " +
				"verify: (1) file size is reasonable (PDFs >20KB, XLSX >5KB), " +
				"(2) content_type matches expected format, (3) url_filename is " +
				"consistent with your intended document.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "Direct download URL for the file.",
					},
					"filename": map[string]any{
						"type": "string",
						"description": "Local filename to save as. Use the original filename " +
							"from the URL whenever possible — do not invent or rename files.",
					},
				},
				"required": []string{"url", "filename"},
			},
		},
	}
}
