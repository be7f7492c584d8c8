package agent

import (
	"encoding/json"

	"github.com/sandevgo/shopbot/internal/core"
)

const (
	ToolRecommendProducts = "recommend_products"
	ToolSearchByImage     = "search_by_image"
)

const recommendProductsSchema = `{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "What the user is looking for, e.g. 'sports t-shirt' or 'noise cancelling headphones'."
		},
		"top_k": {
			"type": "integer",
			"description": "How many products to return at most."
		},
		"budget": {
			"type": "number",
			"description": "Optional maximum price."
		}
	},
	"required": ["query"]
}`

const searchByImageSchema = `{
	"type": "object",
	"properties": {
		"description": {
			"type": "string",
			"description": "Short description of the product in the image: type, brand, color, material."
		},
		"image_url": {
			"type": "string",
			"description": "URL of the image, used when no description is given."
		},
		"top_k": {
			"type": "integer",
			"description": "How many products to return at most."
		}
	}
}`

// Tools returns the schemas offered to the model when deciding intent.
func Tools() []core.Tool {
	return []core.Tool{
		{
			Type: "function",
			Function: core.Function{
				Name:        ToolRecommendProducts,
				Description: "Recommend products from the store catalog that match the user's needs.",
				Parameters:  json.RawMessage(recommendProductsSchema),
			},
		},
		{
			Type: "function",
			Function: core.Function{
				Name:        ToolSearchByImage,
				Description: "Find catalog products that look like the product in an image.",
				Parameters:  json.RawMessage(searchByImageSchema),
			},
		},
	}
}
