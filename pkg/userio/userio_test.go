package userio_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/absmach/cortex/pkg/mqtt"
	"github.com/absmach/cortex/pkg/mqtt/mocks"
	"github.com/absmach/cortex/pkg/userio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	q := userio.NewQueue(2)

	_, ok := q.TryRecv()
	assert.False(t, ok)

	assert.ErrorIs(t, q.Push(""), userio.ErrEmptyInput)
	require.NoError(t, q.Push("one"))
	require.NoError(t, q.Push("two"))
	assert.ErrorIs(t, q.Push("three"), userio.ErrQueueFull)
	assert.Equal(t, 2, q.Pending())

	in, ok := q.TryRecv()
	assert.True(t, ok)
	assert.Equal(t, "one", in)

	require.NoError(t, q.Deliver(context.Background(), userio.Response{Text: "a"}))
	require.NoError(t, q.Deliver(context.Background(), userio.Response{Text: "b"}))
	out := q.Drain()
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Text)
	assert.Empty(t, q.Drain())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Deliver(ctx, userio.Response{}), context.Canceled)
}

func TestStream(t *testing.T) {
	var out bytes.Buffer
	s := userio.NewStream(strings.NewReader("hello\n\n  world  \n"), &out, 4)

	require.NoError(t, s.Run(context.Background()))

	var inputs []string
	for {
		in, ok := s.TryRecv()
		if !ok {
			break
		}
		inputs = append(inputs, in)
	}
	assert.Equal(t, []string{"hello", "world"}, inputs)

	require.NoError(t, s.Deliver(context.Background(), userio.Response{Text: "hi there"}))
	assert.Equal(t, "hi there\n", out.String())
}

func TestMQTT(t *testing.T) {
	ps := new(mocks.PubSub)
	m := userio.NewMQTT(ps, "n1", 4)

	var handler mqtt.Handler
	ps.On("Subscribe", mock.Anything, "cortex/n1/input", mock.Anything).
		Run(func(args mock.Arguments) { handler = args.Get(2).(mqtt.Handler) }).
		Return(nil)
	require.NoError(t, m.Start(context.Background()))
	require.NotNil(t, handler)

	cases := []struct {
		desc    string
		payload []byte
		input   string
		err     error
	}{
		{desc: "json", payload: []byte(`{"text":"what is edge ai?"}`), input: "what is edge ai?"},
		{desc: "plain text", payload: []byte(" hello "), input: "hello"},
		{desc: "json without text", payload: []byte(`{"other":1}`), input: `{"other":1}`},
		{desc: "blank", payload: []byte("  "), err: userio.ErrEmptyInput},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := handler("cortex/n1/input", tc.payload)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			in, ok := m.TryRecv()
			assert.True(t, ok)
			assert.Equal(t, tc.input, in)
		})
	}

	resp := userio.Response{Text: "answer"}
	ps.On("Publish", mock.Anything, "cortex/n1/output", resp).Return(nil)
	require.NoError(t, m.Deliver(context.Background(), resp))

	ps.On("Unsubscribe", mock.Anything, "cortex/n1/input").Return(nil)
	require.NoError(t, m.Stop(context.Background()))
	ps.AssertExpectations(t)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"text":"answer"`)
}
