// Package handlers provides API Gateway and S3 event handlers for the plan eligibility engine.
package handlers

import (
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
)

// corsHeaders returns the response headers for an endpoint allowing methods.
func corsHeaders(methods ...string) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
		"Access-Control-Allow-Methods": strings.Join(append(methods, "OPTIONS"), ","),
		"Content-Type":                 "application/json",
	}
}

// isPreflight reports whether the request is a CORS preflight.
func isPreflight(request events.APIGatewayProxyRequest) bool {
	return request.HTTPMethod == http.MethodOptions
}

// preflightResponse answers a CORS preflight.
func preflightResponse(headers map[string]string) (events.APIGatewayProxyResponse, error) {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
	}, nil
}

// jsonResponse creates a JSON response.
func jsonResponse(headers map[string]string, statusCode int, payload any) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return errorResponse(headers, http.StatusInternalServerError, "Failed to encode response")
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

// errorResponse creates an error response.
func errorResponse(headers map[string]string, statusCode int, message string) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(map[string]string{
		"error":   http.StatusText(statusCode),
		"message": message,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}
