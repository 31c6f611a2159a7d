package api

import (
	"net/http"

	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/pkg/scheduler"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*statusRes)(nil)
	_ supermq.Response = (*privacyRes)(nil)
	_ supermq.Response = (*taskRes)(nil)
	_ supermq.Response = (*inputRes)(nil)
)

type statusRes struct {
	node.Status
}

func (res statusRes) Code() int {
	return http.StatusOK
}

func (res statusRes) Headers() map[string]string {
	return map[string]string{}
}

func (res statusRes) Empty() bool {
	return false
}

type privacyRes struct {
	node.PrivacyStatus
}

func (res privacyRes) Code() int {
	return http.StatusOK
}

func (res privacyRes) Headers() map[string]string {
	return map[string]string{}
}

func (res privacyRes) Empty() bool {
	return false
}

type taskRes struct {
	Kind scheduler.TaskKind `json:"kind"`
	Lane string             `json:"lane"`
}

func (res taskRes) Code() int {
	return http.StatusAccepted
}

func (res taskRes) Headers() map[string]string {
	return map[string]string{}
}

func (res taskRes) Empty() bool {
	return false
}

type inputRes struct {
	Queued bool `json:"queued"`
}

func (res inputRes) Code() int {
	return http.StatusAccepted
}

func (res inputRes) Headers() map[string]string {
	return map[string]string{}
}

func (res inputRes) Empty() bool {
	return false
}
