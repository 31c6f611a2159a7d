package sdk_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/node/api"
	"github.com/absmach/cortex/pkg/inference/template"
	"github.com/absmach/cortex/pkg/policy"
	"github.com/absmach/cortex/pkg/sdk"
	"github.com/absmach/cortex/pkg/userio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (sdk.SDK, node.Service, *userio.Queue) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := node.DefaultConfig()
	cfg.NodeID = "node-sdk"
	queue := userio.NewQueue(2)
	svc, err := node.NewService(cfg, node.Deps{
		Engine: template.New(template.DefaultConfig()),
		Policy: policy.New(false),
		IO:     queue,
	}, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(api.MakeHandler(svc, logger, "sdk-test"))
	t.Cleanup(ts.Close)

	return sdk.NewSDK(sdk.Config{NodeURL: ts.URL + "/"}), svc, queue
}

func TestStatus(t *testing.T) {
	client, svc, _ := setup(t)

	_, err := svc.Tick(context.Background())
	require.NoError(t, err)

	st, err := client.Status()
	require.NoError(t, err)
	assert.Equal(t, "node-sdk", st.NodeID)
	assert.Equal(t, "desktop", st.Tier)
	assert.Equal(t, uint64(1), st.Tick)
	assert.Equal(t, "normal", st.Throttle.Level)
	assert.Nil(t, st.Training)
}

func TestPrivacyWithoutLearner(t *testing.T) {
	client, _, _ := setup(t)

	p, err := client.Privacy()
	require.NoError(t, err)
	assert.False(t, p.Enabled)

	_, err = client.ResetPrivacy()
	assert.ErrorContains(t, err, "503")
}

func TestEnqueueTask(t *testing.T) {
	client, _, _ := setup(t)

	cases := []struct {
		desc string
		kind string
		lane string
		err  bool
	}{
		{desc: "background task", kind: "snapshot_creation", lane: "background"},
		{desc: "normal task", kind: "local_training", lane: "normal"},
		{desc: "unknown task", kind: "reboot", err: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			task, err := client.EnqueueTask(tc.kind)
			if tc.err {
				assert.ErrorContains(t, err, "400")

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.kind, task.Kind)
			assert.Equal(t, tc.lane, task.Lane)
		})
	}

	st, err := client.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Pending["background"])
	assert.Equal(t, 1, st.Pending["normal"])
}

func TestSendInput(t *testing.T) {
	client, svc, queue := setup(t)

	require.NoError(t, client.SendInput("hello"))
	require.NoError(t, client.SendInput("how are you?"))
	assert.ErrorContains(t, client.SendInput("one more"), "503")
	assert.ErrorContains(t, client.SendInput(""), "400")

	_, err := svc.Tick(context.Background())
	require.NoError(t, err)

	delivered := queue.Drain()
	require.Len(t, delivered, 1)
	assert.Equal(t, "hello", delivered[0].Input)
	assert.Equal(t, policy.Allow, delivered[0].Decision)
	assert.NotEmpty(t, delivered[0].Text)
}
