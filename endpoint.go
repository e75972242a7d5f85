package base

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/endpoint"

	"github.com/qgg21ypuLukeS/NucloFlo/model"
	"github.com/qgg21ypuLukeS/NucloFlo/service"
)

type Endpoints struct {
	RunBlast endpoint.Endpoint
	Health   endpoint.Endpoint
}

func NewEndpoint(s service.Service, deadline time.Duration) Endpoints {
	return Endpoints{
		RunBlast: Middleware(makeRunBlastEndpoint(s), deadline),
		Health:   Middleware(makeHealthEndpoint(s), deadline),
	}
}

// Middleware applies both error handling and timeout middleware to an endpoint...
func Middleware(ep endpoint.Endpoint, timeout time.Duration) endpoint.Endpoint {
	return service.ErrorHandlingMiddleware(service.TimeoutMiddleware(timeout)(ep))
}

func makeRunBlastEndpoint(s service.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(model.RunBlastRequest)
		if !ok {
			return nil, fmt.Errorf("invalid request type: expected model.RunBlastRequest")
		}
		return s.RunBlast(ctx, req)
	}
}

func makeHealthEndpoint(s service.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		return s.Health(ctx)
	}
}
