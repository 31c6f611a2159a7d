package api

import (
	"context"
	"errors"

	"github.com/absmach/cortex/node"
	pkgerrors "github.com/absmach/cortex/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func statusEndpoint(svc node.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		st, err := svc.Status(ctx)
		if err != nil {
			return statusRes{}, err
		}

		return statusRes{Status: st}, nil
	}
}

func privacyEndpoint(svc node.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		ps, err := svc.Privacy(ctx)
		if err != nil {
			return privacyRes{}, err
		}

		return privacyRes{PrivacyStatus: ps}, nil
	}
}

func resetPrivacyEndpoint(svc node.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		if err := svc.ResetPrivacy(ctx); err != nil {
			return privacyRes{}, err
		}

		ps, err := svc.Privacy(ctx)
		if err != nil {
			return privacyRes{}, err
		}

		return privacyRes{PrivacyStatus: ps}, nil
	}
}

func enqueueEndpoint(svc node.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(taskReq)
		if !ok {
			return taskRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		kind, err := req.validate()
		if err != nil {
			return taskRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.Enqueue(ctx, kind); err != nil {
			return taskRes{}, err
		}

		return taskRes{Kind: kind, Lane: kind.Lane().String()}, nil
	}
}

func submitEndpoint(svc node.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(inputReq)
		if !ok {
			return inputRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return inputRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.Submit(ctx, req.Text); err != nil {
			return inputRes{}, err
		}

		return inputRes{Queued: true}, nil
	}
}
