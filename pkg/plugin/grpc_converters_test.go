package plugin

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestProtoToMessageEventInvalidPayload(t *testing.T) {
	s := messageEventToProto(&MessageEvent{ClientID: "abc123"})
	s.Fields["payload"] = structpb.NewStringValue("not base64!")

	_, err := protoToMessageEvent(s)
	require.Error(t, err)
}

func TestProtoToMessageEventInvalidQoS(t *testing.T) {
	s := messageEventToProto(&MessageEvent{ClientID: "abc123"})
	s.Fields["qos"] = structpb.NewNumberValue(3)

	_, err := protoToMessageEvent(s)
	require.Error(t, err)
}

func TestProtoToMessageEventEmptyPayload(t *testing.T) {
	ev, err := protoToMessageEvent(messageEventToProto(&MessageEvent{ClientID: "abc123"}))
	require.NoError(t, err)
	require.Empty(t, ev.Payload)
}

func TestProtoToStatusMissing(t *testing.T) {
	require.Equal(t, StatusUnknown, protoToStatus(&structpb.Struct{}))
	require.Equal(t, StatusNoMem, protoToStatus(statusToProto(StatusNoMem)))
}

func TestProtoToInitializeIgnoresNonStringOptions(t *testing.T) {
	s := initializeToProto(&InitializeRequest{Name: "csv", Options: map[string]string{"root": "/tmp"}})
	s.Fields["options"].GetStructValue().Fields["max_conn"] = structpb.NewNumberValue(4)

	req := protoToInitialize(s)
	require.Equal(t, map[string]string{"root": "/tmp"}, req.Options)
}

func TestResultConversion(t *testing.T) {
	require.NoError(t, protoToResult(resultToProto(nil)))
	require.ErrorIs(t, protoToResult(&structpb.Struct{}), errHookFailed)
}
