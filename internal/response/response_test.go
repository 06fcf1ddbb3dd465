package response_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/sanix-darker/loadgun/internal/channel"
	"github.com/sanix-darker/loadgun/internal/httpclient"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/sanix-darker/loadgun/internal/provider"
	"github.com/sanix-darker/loadgun/internal/response"
	"github.com/sanix-darker/loadgun/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulate_DecodesJSONBodyAndFoldsHeaders(t *testing.T) {
	env := jsonvalue.NewObject()
	resp := httpclient.Response{
		Status:     200,
		StatusText: "200 OK",
		Proto:      "HTTP/1.1",
		Headers:    http.Header{"Content-Type": {"application/json"}, "Set-Cookie": {"a=1", "b=2"}},
		Body:       []byte(`{"id":7}`),
	}

	response.Populate(env, resp, 15*time.Millisecond)

	assert.Equal(t, float64(200), env["response"].(jsonvalue.Object)["status"])
	assert.Equal(t, "HTTP/1.1 200 OK", env["response"].(jsonvalue.Object)["start-line"])
	body := env["response"].(jsonvalue.Object)["body"]
	obj, ok := jsonvalue.AsObject(body)
	require.True(t, ok)
	assert.Equal(t, float64(7), obj["id"])

	headers := env["response"].(jsonvalue.Object)["headers"].(jsonvalue.Object)
	cookies, ok := jsonvalue.AsArray(headers["Set-Cookie"])
	require.True(t, ok)
	assert.Len(t, cookies, 2)

	assert.Equal(t, float64(15000), env["stats"].(jsonvalue.Object)["rtt"])
}

func TestPopulate_NonJSONBodyStaysString(t *testing.T) {
	env := jsonvalue.NewObject()
	resp := httpclient.Response{Status: 200, Headers: http.Header{"Content-Type": {"text/plain"}}, Body: []byte("hello")}
	response.Populate(env, resp, 0)
	assert.Equal(t, "hello", env["response"].(jsonvalue.Object)["body"])
}

func TestFanOut_DeliversSelectedValuesAndAcksOnDemand(t *testing.T) {
	tx, rx := channel.NewChannel[jsonvalue.V](channel.IntegerLimit(4))
	env := jsonvalue.NewObject()
	jsonvalue.SetPath(env, "response.body.id", float64(9))

	var acked *bool
	ack := func(consumed bool) { acked = &consumed }

	targets := []response.Outgoing{{
		Name:         "ids",
		Select:       template.PathSelect{Path: "response.body.id"},
		Tx:           tx,
		SendBehavior: provider.SendIfNotFull,
		OnDemandAck:  ack,
	}}

	err := response.FanOut(context.Background(), env, targets)
	require.NoError(t, err)
	require.NotNil(t, acked)
	assert.True(t, *acked)

	v, ok, err := rx.Receive(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(9), v)
}

func TestFanOut_EmptySelectionAcksFalse(t *testing.T) {
	tx, _ := channel.NewChannel[jsonvalue.V](channel.IntegerLimit(4))
	env := jsonvalue.NewObject()

	var consumed bool
	ackCalled := false
	targets := []response.Outgoing{{
		Select:       template.PathSelect{Path: "response.body.missing"},
		Tx:           tx,
		SendBehavior: provider.SendIfNotFull,
		OnDemandAck:  func(c bool) { ackCalled = true; consumed = c },
	}}

	err := response.FanOut(context.Background(), env, targets)
	require.NoError(t, err)
	assert.True(t, ackCalled)
	assert.False(t, consumed)
}

func TestClassifyStatus_ServerErrorIsRecoverable(t *testing.T) {
	assert.Error(t, response.ClassifyStatus(500))
	assert.NoError(t, response.ClassifyStatus(404))
	assert.NoError(t, response.ClassifyStatus(200))
}
