package wire

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-thief-cash/resurrector/bundle"
	"github.com/grand-thief-cash/resurrector/model"
)

func workerRequest() model.RegistrationRequest {
	return model.RegistrationRequest{
		Identity:         model.Identity{Namespace: "pkg.a", Name: "Worker"},
		EndpointKind:     model.EndpointService,
		ActivationAction: ActionResurrect,
		Payload:          bundle.New().Set("retries", bundle.Int32(3)),
		NotifyOn:         []string{"ping", "boot"},
	}
}

func TestSubmissionRoundTripOverJSON(t *testing.T) {
	req := workerRequest()
	data, err := json.Marshal(PopulateRequestMessage(req))
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	got, err := ParseRequestMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, req.Equal(got))
	assert.Equal(t, []string{"boot", "ping"}, got.NotifyOn)
}

func TestParseRejectsForeignAndMalformedMessages(t *testing.T) {
	ctx := context.Background()
	_, err := ParseRequestMessage(ctx, Message{Action: "some.OTHER"})
	assert.ErrorIs(t, err, ErrNotSubmission)

	msg := PopulateRequestMessage(workerRequest())
	delete(msg.Extras, KeyClassName)
	_, err = ParseRequestMessage(ctx, msg)
	assert.ErrorIs(t, err, ErrMalformed)

	msg = PopulateRequestMessage(workerRequest())
	msg.Extras[KeyComponentType] = bundle.String("Receiver")
	_, err = ParseRequestMessage(ctx, msg)
	assert.ErrorIs(t, err, ErrMalformed)

	msg = PopulateRequestMessage(workerRequest())
	msg.Extras[KeyNotifiers] = bundle.String("ping")
	_, err = ParseRequestMessage(ctx, msg)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseAcceptsActionSuffixAndMissingOptionals(t *testing.T) {
	msg := Message{Action: ActionRequestResurrection + ".v2", Extras: bundle.New().
		Set(KeyPackageName, bundle.String("pkg.a")).
		Set(KeyClassName, bundle.String("Worker")).
		Set(KeyComponentType, bundle.String("Activity"))}
	req, err := ParseRequestMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, req.IsWildcard())
	assert.Empty(t, req.ActivationAction)
	assert.Nil(t, req.Payload)
}

func TestUndecodablePayloadLeavesPayloadAbsent(t *testing.T) {
	raw := `{"action":"resurrector.REQUEST","extras":{
		"registration_intent_package_name":{"kind":"string","value":"pkg.a"},
		"registration_intent_class_name":{"kind":"string","value":"Worker"},
		"registration_intent_component_type":{"kind":"string","value":"Service"},
		"registration_intent_extras":{"kind":"bundle","value":{"n":{"kind":"int32","value":"NaN"}}}}}`
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	req, err := ParseRequestMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Nil(t, req.Payload)

	wrongKind := PopulateRequestMessage(workerRequest())
	wrongKind.Extras[KeyExtras] = bundle.String("not a bundle")
	req, err = ParseRequestMessage(context.Background(), wrongKind)
	require.NoError(t, err)
	assert.Nil(t, req.Payload)
}

func TestBuildActivationCarriesEventsAndPayload(t *testing.T) {
	req := workerRequest()
	act := BuildActivation(req, []string{"ping"})
	assert.Equal(t, ActionResurrect, act.Action)
	assert.Equal(t, req.Identity, *act.Component)

	events, ok := ResurrectionEvents(act)
	require.True(t, ok)
	assert.Equal(t, []string{"ping"}, events)
	retries, _ := act.Extras["retries"].AsInt32()
	assert.Equal(t, int32(3), retries)
	_, mutated := req.Payload[ExtraResurrectNotifier]
	assert.False(t, mutated)

	_, ok = ResurrectionEvents(Message{Action: ActionResurrect})
	assert.False(t, ok)
}
