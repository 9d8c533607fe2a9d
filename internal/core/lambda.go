package core

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

// FunctionURLHandler is the signature lambda.Start expects for Lambda
// Function URL invocations.
type FunctionURLHandler func(ctx context.Context, ev events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error)

// NewFunctionURLHandler serves Function URL invocations through h, so the
// webhook runs behind the same router and middleware chain in both
// deployment modes.
func NewFunctionURLHandler(h http.Handler) FunctionURLHandler {
	return httpadapter.NewFunctionURL(h).ProxyWithContext
}
