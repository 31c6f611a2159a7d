package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/pkg/api"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodyBytes = 64 * 1024

func MakeHandler(svc node.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)

	mux.Route("/privacy", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			privacyEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "privacy").ServeHTTP)
		r.Post("/reset", otelhttp.NewHandler(kithttp.NewServer(
			resetPrivacyEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "reset-privacy").ServeHTTP)
	})

	mux.Post("/tasks", otelhttp.NewHandler(kithttp.NewServer(
		enqueueEndpoint(svc),
		decodeTaskReq,
		api.EncodeResponse,
		opts...,
	), "enqueue-task").ServeHTTP)

	mux.Post("/input", otelhttp.NewHandler(kithttp.NewServer(
		submitEndpoint(svc),
		decodeInputReq,
		api.EncodeResponse,
		opts...,
	), "submit-input").ServeHTTP)

	mux.Get("/health", supermq.Health("cortex", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return nil, nil
}

func decodeTaskReq(_ context.Context, r *http.Request) (any, error) {
	var req taskReq
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeInputReq(_ context.Context, r *http.Request) (any, error) {
	var req inputReq
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeJSON(r *http.Request, v any) error {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return errors.Join(err, apiutil.ErrValidation)
	}

	return nil
}
