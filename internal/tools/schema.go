package tools

import (
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	ToolName        = "database_query"
	toolDescription = "Access the SafeDrive Insurance database to retrieve information about " +
		"users, cars, insurance products, and quotes. Use this tool to get " +
		"real-time data to assist customers with their inquiries."
)

// Definition describes database_query to an OpenAI-compatible model.
func Definition() openai.Tool {
	str := func(desc string) jsonschema.Definition {
		return jsonschema.Definition{Type: jsonschema.String, Description: desc}
	}
	num := func(desc string) jsonschema.Definition {
		return jsonschema.Definition{Type: jsonschema.Integer, Description: desc}
	}

	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"query_type": {
				Type:        jsonschema.String,
				Description: "The type of query to execute.",
				Enum:        QueryTypes,
			},
			"user_id":       num("User id for user_info, user_cars and user_quotes."),
			"car_id":        num("Car id for quote_calculation."),
			"product_id":    num("Product id for quote_calculation."),
			"username":      str("Username for search_user."),
			"limit":         num("Number of quotes for recent_quotes. Defaults to 10."),
			"car_model":     str("Free-text car model for general_quote."),
			"driver_age":    num("Driver age in years for general_quote."),
			"policy_number": str("Policy number for policy_details."),
			"license_plate": str("Full or partial license plate for search_cars and search_user_details."),
			"make":          str("Car make for search_cars."),
			"model":         str("Car model for search_cars."),
			"mileage":       num("Maximum mileage for search_cars."),
			"vehicle_value": num("Minimum vehicle value in euro for search_cars."),
			"first_name":    str("First name fragment for search_user_details."),
			"last_name":     str("Last name fragment for search_user_details."),
		},
		Required: []string{"query_type"},
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        ToolName,
			Description: toolDescription,
			Parameters:  params,
		},
	}
}
