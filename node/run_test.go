package node_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/node/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRun(t *testing.T) {
	cases := []struct {
		desc  string
		setup func(svc *mocks.Service)
	}{
		{
			desc: "successful ticks",
			setup: func(svc *mocks.Service) {
				svc.On("Tick", mock.Anything).Return(node.TickReport{}, nil)
			},
		},
		{
			desc: "failing ticks",
			setup: func(svc *mocks.Service) {
				svc.On("Tick", mock.Anything).Return(node.TickReport{}, errors.New("tick failed"))
			},
		},
		{
			desc: "panicking ticks",
			setup: func(svc *mocks.Service) {
				svc.On("Tick", mock.Anything).Panic("boom")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc := new(mocks.Service)
			tc.setup(svc)

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			err := node.Run(ctx, svc, 5*time.Millisecond, logger)
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, len(svc.Calls), 2)
		})
	}
}

func TestRunInvalidInterval(t *testing.T) {
	err := node.Run(context.Background(), new(mocks.Service), 0, logger)
	assert.Error(t, err)
}
