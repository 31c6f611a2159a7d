package api

import (
	"errors"
	"strings"

	"github.com/absmach/cortex/pkg/scheduler"
)

var (
	errMissingKind  = errors.New("missing task kind")
	errMissingInput = errors.New("missing input text")
	errInputTooLong = errors.New("input text too long")
)

const maxInputChars = 8192

type taskReq struct {
	Kind string `json:"kind"`
}

func (req *taskReq) validate() (scheduler.TaskKind, error) {
	if strings.TrimSpace(req.Kind) == "" {
		return 0, errMissingKind
	}

	return scheduler.ParseTaskKind(req.Kind)
}

type inputReq struct {
	Text string `json:"text"`
}

func (req *inputReq) validate() error {
	if strings.TrimSpace(req.Text) == "" {
		return errMissingInput
	}
	if len(req.Text) > maxInputChars {
		return errInputTooLong
	}

	return nil
}
