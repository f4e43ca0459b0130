package rpc

import (
	"context"
	"net/http"
)

type RPCClient interface {
	Endpoint() string
	GetHealth(ctx context.Context) (*Result, error)
	GetBlockProduction(ctx context.Context, params BlockProductionParams) (*BlockProductionResult, *Result, error)
}

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
